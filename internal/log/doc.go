// Package log builds the slog loggers used by sitepack.
//
// Every logger wraps its text or JSON handler in a RedactHandler. Crawls
// log a URL on every fetch and per-site configuration carries cookies and
// custom headers, so the handler masks:
//   - attributes whose key names a credential (cookie, authorization, token, ...)
//   - values that look like credentials (bearer and basic auth, JWTs, key blocks)
//   - userinfo and credential-like query parameters inside URL values
//
// Verbose mode lowers the level to Debug; masking applies at every level.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log

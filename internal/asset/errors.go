package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetDownload is matched by every AssetDownloadError.
	ErrAssetDownload = errors.New("asset download failed")

	// ErrNotImage is returned when the response is not an image.
	ErrNotImage = errors.New("response is not an image")

	// ErrTooLarge is returned when an image exceeds the size limit.
	ErrTooLarge = errors.New("asset exceeds size limit")

	// ErrUnsupportedScheme is returned for URLs other than http(s).
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// AssetDownloadError reports a failure to download one asset.
type AssetDownloadError struct {
	URL string
	Err error
}

func (e *AssetDownloadError) Error() string {
	return fmt.Sprintf("download asset %s: %v", e.URL, e.Err)
}

func (e *AssetDownloadError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrAssetDownload) true for any AssetDownloadError.
func (e *AssetDownloadError) Is(target error) bool {
	return target == ErrAssetDownload
}

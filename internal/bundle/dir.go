package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/sitepack/internal/model"
	"github.com/nao1215/sitepack/internal/schema"
)

// File names inside an emitted directory.
const (
	SiteFile   = "site.json"
	LegacyFile = "crawl.json"
	RawDir     = "raw"
)

// ErrUnsafePath is returned when a page or asset path would leave the
// output directory.
var ErrUnsafePath = errors.New("path escapes output directory")

// ErrDuplicatePath is returned when two pages of a bundle share a path,
// which would make one raw file overwrite the other.
var ErrDuplicatePath = errors.New("page path used more than once")

// DirEmitter writes bundles to a directory:
//
//	site.json          canonical document
//	crawl.json         legacy flat document
//	raw/<page path>    fetched HTML of each page
//	assets/...         downloaded images
type DirEmitter struct {
	dir    string
	logger *slog.Logger
}

// DirOption configures a DirEmitter.
type DirOption func(*DirEmitter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DirOption {
	return func(e *DirEmitter) {
		e.logger = logger
	}
}

// NewDirEmitter creates an emitter writing below dir.
func NewDirEmitter(dir string, opts ...DirOption) *DirEmitter {
	e := &DirEmitter{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the output directory.
func (e *DirEmitter) Dir() string {
	return e.dir
}

// Emit validates the document and writes the bundle.
func (e *DirEmitter) Emit(ctx context.Context, b *Bundle) error {
	if b == nil {
		return errors.New("bundle is nil")
	}
	if err := schema.Validate(b.Document); err != nil {
		return err
	}
	if err := checkPagePaths(b.Pages); err != nil {
		return err
	}

	if err := os.MkdirAll(e.dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := e.writeJSON(SiteFile, b.Document); err != nil {
		return err
	}

	legacy := schema.BuildLegacy(schema.CrawlResult{
		Domain:  b.Domain,
		BaseURL: b.SeedURL,
		Pages:   b.Pages,
		Assets:  b.Assets,
	}, b.CrawledAt)
	if err := e.writeJSON(LegacyFile, legacy); err != nil {
		return err
	}

	for _, page := range b.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.writeFile(filepath.Join(RawDir, filepath.FromSlash(page.Path)), []byte(page.HTML)); err != nil {
			return err
		}
	}

	for _, a := range b.Assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(a.Data) == 0 {
			continue
		}
		if err := e.writeFile(filepath.FromSlash(a.Path), a.Data); err != nil {
			return err
		}
	}

	e.logger.Info("bundle written",
		"dir", e.dir,
		"pages", len(b.Pages),
		"assets", len(b.Assets))
	return nil
}

func checkPagePaths(pages []*model.PageRecord) error {
	owner := make(map[string]string, len(pages))
	for _, page := range pages {
		if prev, dup := owner[page.Path]; dup {
			return fmt.Errorf("%w: %s (%s, %s)", ErrDuplicatePath, page.Path, prev, page.URL)
		}
		owner[page.Path] = page.URL
	}
	return nil
}

func (e *DirEmitter) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return e.writeFile(name, append(data, '\n'))
}

// writeFile writes data to rel below the output directory.
func (e *DirEmitter) writeFile(rel string, data []byte) error {
	target, err := e.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(target, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

func (e *DirEmitter) resolve(rel string) (string, error) {
	root := filepath.Clean(e.dir)
	target := filepath.Join(root, rel)
	r, err := filepath.Rel(root, target)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, rel)
	}
	return target, nil
}

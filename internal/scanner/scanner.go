package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kpauljoseph/quizankify/pkg/logger"
)

// PageFile is a saved set page found on disk.
type PageFile struct {
	AbsolutePath string
	RelativePath string
}

type DirectoryScanner struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) *DirectoryScanner {
	return &DirectoryScanner{
		logger: logger,
	}
}

// FindPages resolves pattern to saved HTML pages. pattern may be a single
// file, a directory (searched recursively) or a doublestar glob such as
// "saved/**/*.html". Results are sorted by path.
func (s *DirectoryScanner) FindPages(ctx context.Context, pattern string) ([]PageFile, error) {
	base, glob := splitPattern(pattern)

	matches, err := doublestar.Glob(os.DirFS(base), glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var pages []PageFile
	for _, match := range matches {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !isHTML(match) {
			continue
		}

		path := filepath.Join(base, filepath.FromSlash(match))
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		s.logger.Trace("Found page: %s", path)
		pages = append(pages, PageFile{
			AbsolutePath: absPath,
			RelativePath: filepath.FromSlash(match),
		})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no HTML pages found matching %s", pattern)
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].RelativePath < pages[j].RelativePath
	})

	s.logger.Debug("Found %d pages matching %s", len(pages), pattern)
	return pages, nil
}

// splitPattern separates the static leading directory of pattern from the
// part matched against it. Directories expand to every file beneath them.
func splitPattern(pattern string) (string, string) {
	if info, err := os.Stat(pattern); err == nil {
		if info.IsDir() {
			return pattern, "**"
		}
		return filepath.Dir(pattern), filepath.Base(pattern)
	}

	base, glob := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base), glob
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

package loader

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

const skillFileName = "SKILL.md"

// Source supplies one raw skill document. File I/O stays behind this
// interface so the loader itself never touches the filesystem directly.
type Source interface {
	// ID identifies the source in warnings and errors, e.g. a file path
	ID() string
	// Content returns the raw document bytes
	Content(ctx context.Context) ([]byte, error)
}

// FileSource is a Source backed by a file on disk
type FileSource struct {
	Path string
}

// ID returns the file path
func (f FileSource) ID() string {
	return f.Path
}

// Content reads the file, honoring context cancellation before the read
func (f FileSource) Content(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}
	return content, nil
}

// BytesSource is an in-memory Source, used by tests and embedded corpora
type BytesSource struct {
	Name string
	Data []byte
}

// ID returns the source name
func (b BytesSource) ID() string {
	return b.Name
}

// Content returns the raw bytes
func (b BytesSource) Content(_ context.Context) ([]byte, error) {
	return b.Data, nil
}

// DiscoverSources finds SKILL.md files under the given directories. Each
// immediate subdirectory holding a SKILL.md contributes one source; nested
// layouts are picked up via the glob as well. Missing directories are
// skipped silently so repo-local and user-global dirs can both be listed.
func DiscoverSources(dirs ...string) ([]Source, error) {
	var sources []Source
	seen := make(map[string]bool)

	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(dir), "**/"+skillFileName)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to glob skill files under %s", dir)
		}

		sort.Strings(matches)
		for _, m := range matches {
			path := filepath.Join(dir, filepath.FromSlash(m))
			if seen[path] {
				continue
			}
			seen[path] = true
			sources = append(sources, FileSource{Path: path})
		}
	}

	return sources, nil
}

// DefaultSkillDirs returns the standard skill directories in precedence
// order: repo-local first, then user-global.
func DefaultSkillDirs() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user home directory")
	}
	return []string{
		"./.skillet/skills",
		filepath.Join(homeDir, ".skillet", "skills"),
	}, nil
}

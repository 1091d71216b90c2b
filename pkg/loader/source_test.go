package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, dir, name, content string) string {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	path := filepath.Join(skillDir, "SKILL.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverSources(t *testing.T) {
	tmpDir := t.TempDir()

	first := writeSkill(t, tmpDir, "alpha-skill", "---\nname: alpha\ndescription: a\n---\nbody")
	second := writeSkill(t, tmpDir, "beta-skill", "---\nname: beta\ndescription: b\n---\nbody")

	// Nested layouts are picked up too
	nested := writeSkill(t, filepath.Join(tmpDir, "vendor"), "gamma-skill", "---\nname: gamma\ndescription: g\n---\nbody")

	sources, err := DiscoverSources(tmpDir)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	paths := make([]string, 0, len(sources))
	for _, s := range sources {
		paths = append(paths, s.ID())
	}
	assert.Contains(t, paths, first)
	assert.Contains(t, paths, second)
	assert.Contains(t, paths, nested)
}

func TestDiscoverSourcesMissingDirIsSkipped(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "only-skill", "---\nname: only\ndescription: o\n---\nbody")

	sources, err := DiscoverSources(filepath.Join(tmpDir, "does-not-exist"), tmpDir)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestDiscoverSourcesDeterministicOrder(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "zz-skill", "---\nname: zz\ndescription: z\n---\nbody")
	writeSkill(t, tmpDir, "aa-skill", "---\nname: aa\ndescription: a\n---\nbody")

	first, err := DiscoverSources(tmpDir)
	require.NoError(t, err)
	second, err := DiscoverSources(tmpDir)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].ID(), second[0].ID())
	assert.Equal(t, first[1].ID(), second[1].ID())
	// Sorted by path
	assert.Less(t, first[0].ID(), first[1].ID())
}

func TestFileSourceContent(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeSkill(t, tmpDir, "file-skill", "---\nname: f\ndescription: f\n---\nbody")

	src := FileSource{Path: path}
	content, err := src.Content(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: f")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Content(cancelled)
	assert.Error(t, err)
}

func TestFileSourceMissingFile(t *testing.T) {
	src := FileSource{Path: filepath.Join(t.TempDir(), "nope", "SKILL.md")}
	_, err := src.Content(context.Background())
	assert.Error(t, err)
}

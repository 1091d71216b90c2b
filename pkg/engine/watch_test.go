package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkillFile(t *testing.T, root, name, description, body string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := doc("name: "+name+"\ndescription: "+description, body)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), content, 0o644))
}

func startWatcher(t *testing.T, eng *Engine) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watcher time to register the directory tree
	time.Sleep(200 * time.Millisecond)
	return cancel
}

func TestWatchReloadsOnNestedSkillEdit(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkillFile(t, tmpDir, "my-skill", "before edit", "original body")

	eng, err := New(WithSkillDirs(tmpDir))
	require.NoError(t, err)
	first, err := eng.Load(context.Background())
	require.NoError(t, err)

	startWatcher(t, eng)

	// Skill files live one level down; an edit there must still reload
	writeSkillFile(t, tmpDir, "my-skill", "after edit", "updated body")

	require.Eventually(t, func() bool {
		return eng.Snapshot().Corpus.SnapshotVersion > first.Corpus.SnapshotVersion
	}, 5*time.Second, 50*time.Millisecond, "nested SKILL.md edit never triggered a reload")

	skill, ok := eng.Snapshot().Corpus.Get("my-skill")
	require.True(t, ok)
	assert.Equal(t, "after edit", skill.Description)
}

func TestWatchPicksUpNewSkillDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkillFile(t, tmpDir, "existing", "already here", "body")

	eng, err := New(WithSkillDirs(tmpDir))
	require.NoError(t, err)
	_, err = eng.Load(context.Background())
	require.NoError(t, err)

	startWatcher(t, eng)

	writeSkillFile(t, tmpDir, "late-arrival", "added while watching", "body")

	require.Eventually(t, func() bool {
		_, ok := eng.Snapshot().Corpus.Get("late-arrival")
		return ok
	}, 5*time.Second, 50*time.Millisecond, "new skill directory never loaded")

	// The new directory must have its own watch: edits inside it reload too
	writeSkillFile(t, tmpDir, "late-arrival", "edited after arrival", "body")

	require.Eventually(t, func() bool {
		skill, ok := eng.Snapshot().Corpus.Get("late-arrival")
		return ok && skill.Description == "edited after arrival"
	}, 5*time.Second, 50*time.Millisecond, "edit inside new skill directory never triggered a reload")
}

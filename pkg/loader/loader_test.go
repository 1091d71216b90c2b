package loader

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

func doc(frontmatter, body string) []byte {
	return []byte("---\n" + frontmatter + "\n---\n\n" + body)
}

func TestBodySizeCountsBytes(t *testing.T) {
	loader, err := New()
	require.NoError(t, err)

	// Multi-byte runes: size is the UTF-8 byte length, the same measure
	// the selector charges against the budget
	body := "héllo wörld ユニコード"
	sources := []Source{
		BytesSource{Name: "unicode.md", Data: doc("name: unicode\ndescription: non-ascii body", body)},
	}

	corpus, _, err := loader.Load(context.Background(), sources, 1)
	require.NoError(t, err)

	skill, ok := corpus.Get("unicode")
	require.True(t, ok)
	assert.Equal(t, len(body), skill.BodySize)
	assert.Greater(t, skill.BodySize, len([]rune(body)))
}

func TestLoad(t *testing.T) {
	loader, err := New()
	require.NoError(t, err)

	sources := []Source{
		BytesSource{Name: "python.md", Data: doc(
			"name: python-dev\ndescription: python development best practices\nversion: 1.2.0",
			"# Python\n\nUse type hints.")},
		BytesSource{Name: "fastapi.md", Data: doc(
			"name: fastapi\ndescription: fastapi best practices with pydantic\npriority: 5\nconflict-group: web-frameworks",
			"# FastAPI\n\nPrefer dependency injection.")},
	}

	corpus, report, err := loader.Load(context.Background(), sources, 1)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
	require.Equal(t, 2, corpus.Len())

	// Sorted by id regardless of source order
	assert.Equal(t, "fastapi", corpus.Skills[0].ID)
	assert.Equal(t, "python-dev", corpus.Skills[1].ID)

	fastapi, ok := corpus.Get("fastapi")
	require.True(t, ok)
	assert.Equal(t, "fastapi best practices with pydantic", fastapi.Description)
	assert.Equal(t, 5, fastapi.Priority)
	assert.Equal(t, "web-frameworks", fastapi.ConflictGroup)
	assert.Contains(t, fastapi.BodyContent, "dependency injection")
	assert.Equal(t, len(fastapi.BodyContent), fastapi.BodySize)

	python, ok := corpus.Get("python-dev")
	require.True(t, ok)
	assert.Equal(t, "1.2.0", python.Version)
	assert.Zero(t, python.Priority)
}

func TestLoadNestedMetadataVersion(t *testing.T) {
	loader, err := New()
	require.NoError(t, err)

	sources := []Source{
		BytesSource{Name: "s.md", Data: doc(
			"name: nested\ndescription: a skill\nmetadata:\n  version: 0.3.1",
			"body")},
	}

	corpus, _, err := loader.Load(context.Background(), sources, 1)
	require.NoError(t, err)

	skill, ok := corpus.Get("nested")
	require.True(t, ok)
	assert.Equal(t, "0.3.1", skill.Version)
}

func TestLoadMalformedDocumentsAreSkippedWithWarnings(t *testing.T) {
	loader, err := New()
	require.NoError(t, err)

	sources := []Source{
		BytesSource{Name: "good.md", Data: doc("name: good\ndescription: a valid skill", "body")},
		BytesSource{Name: "no-description.md", Data: doc("name: bad", "body")},
		BytesSource{Name: "no-frontmatter.md", Data: []byte("just a markdown body")},
	}

	corpus, report, err := loader.Load(context.Background(), sources, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, corpus.Len())
	require.Len(t, report.Warnings, 2)
	assert.Equal(t, "no-description.md", report.Warnings[0].SourceID)
	assert.Equal(t, "no-frontmatter.md", report.Warnings[1].SourceID)
	assert.Error(t, report.Err())
}

func TestLoadDuplicateSkillNameIsFatal(t *testing.T) {
	loader, err := New()
	require.NoError(t, err)

	sources := []Source{
		BytesSource{Name: "a.md", Data: doc("name: Same Skill\ndescription: first", "one")},
		BytesSource{Name: "b.md", Data: doc("name: same-skill\ndescription: second", "two")},
	}

	corpus, _, err := loader.Load(context.Background(), sources, 1)
	assert.Nil(t, corpus)
	require.Error(t, err)
	assert.True(t, errors.Is(err, skilltypes.ErrDuplicateSkillName))
}

func TestLoadAllowPatterns(t *testing.T) {
	loader, err := New(WithAllowPatterns("db-*"))
	require.NoError(t, err)

	sources := []Source{
		BytesSource{Name: "a.md", Data: doc("name: db-migrations\ndescription: database migrations", "body")},
		BytesSource{Name: "b.md", Data: doc("name: web-frontend\ndescription: frontend guidance", "body")},
	}

	corpus, report, err := loader.Load(context.Background(), sources, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, corpus.Len())
	assert.Equal(t, 1, report.Skipped)

	_, ok := corpus.Get("db-migrations")
	assert.True(t, ok)
}

func TestLoadInvalidAllowPattern(t *testing.T) {
	_, err := New(WithAllowPatterns("[invalid"))
	assert.Error(t, err)
}

// blockingSource never returns until its context is cancelled
type blockingSource struct{}

func (blockingSource) ID() string { return "blocking" }

func (blockingSource) Content(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLoadTimeout(t *testing.T) {
	loader, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	corpus, _, err := loader.Load(ctx, []Source{blockingSource{}}, 1)
	assert.Nil(t, corpus)
	require.Error(t, err)
	assert.True(t, errors.Is(err, skilltypes.ErrLoadTimeout))
}

func TestLoadIdempotent(t *testing.T) {
	loader, err := New()
	require.NoError(t, err)

	sources := []Source{
		BytesSource{Name: "a.md", Data: doc("name: alpha\ndescription: alpha skill", "alpha body")},
		BytesSource{Name: "b.md", Data: doc("name: beta\ndescription: beta skill", "beta body")},
	}

	first, _, err := loader.Load(context.Background(), sources, 1)
	require.NoError(t, err)
	second, _, err := loader.Load(context.Background(), sources, 2)
	require.NoError(t, err)

	// Structurally equal apart from snapshot identity
	assert.Equal(t, first.Skills, second.Skills)
	assert.NotEqual(t, first.SnapshotVersion, second.SnapshotVersion)
	assert.NotEqual(t, first.SnapshotID, second.SnapshotID)
}

func TestLoadEmpty(t *testing.T) {
	loader, err := New()
	require.NoError(t, err)

	corpus, report, err := loader.Load(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, corpus.Len())
	assert.Empty(t, report.Warnings)
}

// Package loader parses raw skill documents into an immutable corpus
// snapshot. Documents are SKILL.md files with YAML frontmatter (name,
// description, optional version/priority/conflict-group) followed by a
// free-text guidance body. Parsing is independent per document, so a bad
// file is skipped with a warning instead of failing the whole load; only
// duplicate skill ids and load timeouts abort the load.
package loader

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/skillet/pkg/logger"
	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

const defaultParallelism = 8

// Loader parses document sources into corpus snapshots
type Loader struct {
	allow       []glob.Glob
	parallelism int
}

// Option is a function that configures a Loader
type Option func(*Loader) error

// WithAllowPatterns restricts loaded skills to ids matching any of the
// given glob patterns, e.g. "db-*". No patterns means all skills load.
func WithAllowPatterns(patterns ...string) Option {
	return func(l *Loader) error {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return errors.Wrapf(err, "invalid allow pattern %q", p)
			}
			l.allow = append(l.allow, g)
		}
		return nil
	}
}

// WithParallelism bounds the number of documents parsed concurrently
func WithParallelism(n int) Option {
	return func(l *Loader) error {
		if n < 1 {
			return errors.Errorf("parallelism must be positive, got %d", n)
		}
		l.parallelism = n
		return nil
	}
}

// New creates a loader with the given options
func New(opts ...Option) (*Loader, error) {
	l := &Loader{parallelism: defaultParallelism}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Report records the non-fatal outcomes of a load
type Report struct {
	// Warnings holds one entry per skipped document
	Warnings []*skilltypes.MalformedDocumentError
	// Skipped counts skills dropped by the allowlist, not an error
	Skipped int
}

// WarningStrings renders the warnings for diagnostics output
func (r *Report) WarningStrings() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, w.Error())
	}
	return out
}

// Err aggregates all warnings into a single error, or nil if there are none
func (r *Report) Err() error {
	var merr *multierror.Error
	for _, w := range r.Warnings {
		merr = multierror.Append(merr, w)
	}
	return merr.ErrorOrNil()
}

// Load parses all sources and produces a corpus tagged with the given
// snapshot version. The returned report carries per-document warnings.
// A half-built corpus is never returned: duplicate ids and timeouts yield
// a nil corpus and a fatal error.
func (l *Loader) Load(ctx context.Context, sources []Source, snapshotVersion uint64) (*skilltypes.Corpus, *Report, error) {
	type result struct {
		skill   *skilltypes.Skill
		warning *skilltypes.MalformedDocumentError
	}

	results := make([]result, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			content, err := src.Content(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i] = result{warning: &skilltypes.MalformedDocumentError{
					SourceID: src.ID(),
					Cause:    err.Error(),
				}}
				return nil
			}

			skill, err := parseDocument(src.ID(), content)
			if err != nil {
				var malformed *skilltypes.MalformedDocumentError
				if errors.As(err, &malformed) {
					results[i] = result{warning: malformed}
					return nil
				}
				return err
			}

			results[i] = result{skill: skill}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, errors.Wrap(skilltypes.ErrLoadTimeout, "corpus load cancelled by deadline")
		}
		return nil, nil, err
	}

	report := &Report{}
	loaded := make([]skilltypes.Skill, 0, len(sources))
	firstSource := make(map[string]string)

	for i, res := range results {
		if res.warning != nil {
			logger.G(ctx).WithField("source", res.warning.SourceID).Warn(res.warning.Cause)
			report.Warnings = append(report.Warnings, res.warning)
			continue
		}
		if res.skill == nil {
			continue
		}

		skill := *res.skill
		if prev, dup := firstSource[skill.ID]; dup {
			return nil, nil, errors.Wrapf(skilltypes.ErrDuplicateSkillName,
				"skill id %q defined by both %q and %q", skill.ID, prev, sources[i].ID())
		}
		firstSource[skill.ID] = sources[i].ID()

		if !l.allowed(skill.ID) {
			report.Skipped++
			continue
		}
		loaded = append(loaded, skill)
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })

	corpus := skilltypes.NewCorpus(snapshotVersion, uuid.NewString(), loaded)
	logger.G(ctx).WithFields(map[string]interface{}{
		"skills":   corpus.Len(),
		"warnings": len(report.Warnings),
		"snapshot": corpus.SnapshotVersion,
	}).Debug("Loaded skill corpus")

	return corpus, report, nil
}

func (l *Loader) allowed(id string) bool {
	if len(l.allow) == 0 {
		return true
	}
	for _, g := range l.allow {
		if g.Match(id) {
			return true
		}
	}
	return false
}

// parseDocument parses one SKILL.md document into a skill record
func parseDocument(sourceID string, content []byte) (*skilltypes.Skill, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, &skilltypes.MalformedDocumentError{
			SourceID: sourceID,
			Cause:    errors.Wrap(err, "failed to parse markdown").Error(),
		}
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, &skilltypes.MalformedDocumentError{SourceID: sourceID, Cause: "missing frontmatter"}
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	if name == "" {
		return nil, &skilltypes.MalformedDocumentError{SourceID: sourceID, Cause: "skill name is required in frontmatter"}
	}
	if description == "" {
		return nil, &skilltypes.MalformedDocumentError{SourceID: sourceID, Cause: "skill description is required in frontmatter"}
	}

	body := extractBodyContent(string(content))

	skill := &skilltypes.Skill{
		ID:          skilltypes.SlugID(name),
		Name:        name,
		Description: description,
		Version:     metaString(metaData, "version"),
		BodySize:    len(body),
		BodyContent: body,
	}

	if p, ok := metaInt(metaData, "priority"); ok {
		skill.Priority = p
	}
	skill.ConflictGroup = metaString(metaData, "conflict-group")

	return skill, nil
}

// metaString reads a string frontmatter key, checking the top level first
// and then the nested "metadata" map for compatibility with sources that
// group optional fields there.
func metaString(metaData map[string]interface{}, key string) string {
	if v, ok := metaData[key].(string); ok {
		return v
	}
	switch nested := metaData["metadata"].(type) {
	case map[string]interface{}:
		if v, ok := nested[key].(string); ok {
			return v
		}
	case map[interface{}]interface{}:
		if v, ok := nested[key].(string); ok {
			return v
		}
	}
	return ""
}

func metaInt(metaData map[string]interface{}, key string) (int, bool) {
	switch v := metaData[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}

// Package engine ties the pipeline together: it owns the current
// (corpus, index) snapshot, reloads it on demand or on filesystem change,
// and answers match queries. The snapshot is published atomically so
// in-flight queries keep the snapshot they started with while new queries
// see the fresh one; there is no ambient mutable corpus state anywhere
// else.
package engine

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/composer"
	"github.com/jingkaihe/skillet/pkg/index"
	"github.com/jingkaihe/skillet/pkg/loader"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/matcher"
	"github.com/jingkaihe/skillet/pkg/selector"
	"github.com/jingkaihe/skillet/pkg/telemetry"
	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

// Recorder persists match invocations for later inspection
type Recorder interface {
	RecordMatch(ctx context.Context, query skilltypes.Query, bundle *skilltypes.Bundle) error
}

// Snapshot is one immutable (corpus, index) pair plus the load warnings
// that produced it
type Snapshot struct {
	Corpus   *skilltypes.Corpus
	Index    *index.Index
	Warnings []string
}

// Engine is the skill discovery and context-injection engine
type Engine struct {
	loader         *loader.Loader
	skillDirs      []string
	conflictGroups map[string]string // skill id -> group, overrides frontmatter
	loadTimeout    time.Duration
	recorder       Recorder

	snapshot atomic.Pointer[Snapshot]
	version  atomic.Uint64
}

// Option is a function that configures an Engine
type Option func(*Engine) error

// WithSkillDirs sets custom skill directories
func WithSkillDirs(dirs ...string) Option {
	return func(e *Engine) error {
		e.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs initializes with the standard skill directories
func WithDefaultDirs() Option {
	return func(e *Engine) error {
		dirs, err := loader.DefaultSkillDirs()
		if err != nil {
			return err
		}
		e.skillDirs = dirs
		return nil
	}
}

// WithLoader sets a custom loader, e.g. one with allowlist patterns
func WithLoader(l *loader.Loader) Option {
	return func(e *Engine) error {
		e.loader = l
		return nil
	}
}

// WithLoadTimeout bounds how long a corpus load may block on its sources
func WithLoadTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return errors.Errorf("load timeout must be positive, got %s", d)
		}
		e.loadTimeout = d
		return nil
	}
}

// WithConflictGroups sets conflict-group overrides as a group -> skill ids
// mapping, taking precedence over frontmatter conflict-group tags
func WithConflictGroups(groups map[string][]string) Option {
	return func(e *Engine) error {
		for group, ids := range groups {
			for _, id := range ids {
				if prev, ok := e.conflictGroups[id]; ok && prev != group {
					return errors.Errorf("skill %q assigned to conflict groups %q and %q", id, prev, group)
				}
				e.conflictGroups[id] = group
			}
		}
		return nil
	}
}

// WithConflictGroupsFile loads conflict-group overrides from a YAML file
// with a top-level conflict_groups mapping
func WithConflictGroupsFile(path string) Option {
	return func(e *Engine) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read conflict groups file %q", path)
		}
		var doc struct {
			ConflictGroups map[string][]string `yaml:"conflict_groups"`
		}
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return errors.Wrapf(err, "failed to parse conflict groups file %q", path)
		}
		return WithConflictGroups(doc.ConflictGroups)(e)
	}
}

// WithRecorder enables match-history recording
func WithRecorder(r Recorder) Option {
	return func(e *Engine) error {
		e.recorder = r
		return nil
	}
}

// New creates an engine. With no options it discovers skills from the
// standard directories.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		conflictGroups: make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if e.skillDirs == nil {
		if err := WithDefaultDirs()(e); err != nil {
			return nil, err
		}
	}
	if e.loader == nil {
		l, err := loader.New()
		if err != nil {
			return nil, err
		}
		e.loader = l
	}

	return e, nil
}

// Load builds a fresh corpus snapshot from the configured directories and
// publishes it atomically. In-flight queries keep the snapshot they started
// with. On failure the previous snapshot stays published.
func (e *Engine) Load(ctx context.Context) (*Snapshot, error) {
	sources, err := loader.DiscoverSources(e.skillDirs...)
	if err != nil {
		return nil, err
	}
	return e.LoadSources(ctx, sources)
}

// LoadSources is Load over an explicit source list, used by tests and
// callers that manage their own document store
func (e *Engine) LoadSources(ctx context.Context, sources []loader.Source) (*Snapshot, error) {
	if e.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.loadTimeout)
		defer cancel()
	}

	var snap *Snapshot
	err := telemetry.WithSpan(ctx, "engine.load", func(ctx context.Context) error {
		corpus, report, err := e.loader.Load(ctx, sources, e.version.Add(1))
		if err != nil {
			return err
		}

		corpus = e.applyConflictGroups(corpus)

		snap = &Snapshot{
			Corpus:   corpus,
			Index:    index.Build(corpus),
			Warnings: report.WarningStrings(),
		}
		return nil
	}, attribute.Int("sources", len(sources)))
	if err != nil {
		return nil, err
	}

	e.snapshot.Store(snap)
	logger.G(ctx).WithFields(map[string]interface{}{
		"skills":   snap.Corpus.Len(),
		"snapshot": snap.Corpus.SnapshotVersion,
	}).Info("Published corpus snapshot")

	return snap, nil
}

// applyConflictGroups overlays configured conflict-group tags on top of the
// frontmatter ones. The corpus is immutable, so an override produces a new
// corpus value.
func (e *Engine) applyConflictGroups(corpus *skilltypes.Corpus) *skilltypes.Corpus {
	if len(e.conflictGroups) == 0 {
		return corpus
	}

	skills := make([]skilltypes.Skill, len(corpus.Skills))
	copy(skills, corpus.Skills)
	for i := range skills {
		if group, ok := e.conflictGroups[skills[i].ID]; ok {
			skills[i].ConflictGroup = group
		}
	}
	return skilltypes.NewCorpus(corpus.SnapshotVersion, corpus.SnapshotID, skills)
}

// Snapshot returns the currently published snapshot, or nil before the
// first successful load
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Match answers one query against the current snapshot. The whole pipeline
// runs on the snapshot read here, so a concurrent reload never affects a
// query in flight.
func (e *Engine) Match(ctx context.Context, query skilltypes.Query) (*skilltypes.Bundle, error) {
	if query.BudgetChars <= 0 {
		return nil, errors.Wrapf(skilltypes.ErrInvalidQuery, "budget must be positive, got %d", query.BudgetChars)
	}

	snap := e.snapshot.Load()
	if snap == nil {
		return nil, errors.New("no corpus loaded: call Load before Match")
	}

	var bundle *skilltypes.Bundle
	err := telemetry.WithSpan(ctx, "engine.match", func(ctx context.Context) error {
		ranked := matcher.Score(snap.Index, query.ContextText)
		sel := selector.Select(snap.Corpus, ranked, query)

		var err error
		bundle, err = composer.Compose(snap.Corpus, sel)
		if err != nil {
			return err
		}
		bundle.Diagnostics.LoadWarnings = snap.Warnings
		return nil
	},
		attribute.Int("budget_chars", query.BudgetChars),
		attribute.Int("pinned", len(query.Pinned)),
	)
	if err != nil {
		return nil, err
	}

	if e.recorder != nil {
		if err := e.recorder.RecordMatch(ctx, query, bundle); err != nil {
			logger.G(ctx).WithError(err).Warn("Failed to record match history")
		}
	}

	return bundle, nil
}

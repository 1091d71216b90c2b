// Package composer renders a selection into the final bundle handed to the
// consuming agent. Rendering is a pure step: given the same corpus and
// selection it always produces byte-identical output. The only failure mode
// is a selection referencing an id absent from the corpus, which indicates
// a bug upstream, never bad user input.
package composer

import (
	"strings"

	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

const itemSeparator = "\n\n---\n\n"

// Compose renders the ordered bundle plus its diagnostics record
func Compose(corpus *skilltypes.Corpus, sel skilltypes.Selection) (*skilltypes.Bundle, error) {
	items := make([]skilltypes.BundleItem, 0, len(sel.Included))
	for _, id := range sel.Included {
		skill, ok := corpus.Get(id)
		if !ok {
			return nil, errors.Wrapf(skilltypes.ErrInternalConsistency,
				"selection references skill %q absent from corpus snapshot %d", id, corpus.SnapshotVersion)
		}
		items = append(items, skilltypes.BundleItem{
			ID:          skill.ID,
			Name:        skill.Name,
			BodyContent: skill.BodyContent,
		})
	}

	excludedCount := 0
	reasons := make(map[string]skilltypes.Reason, len(sel.Reasons))
	for id, reason := range sel.Reasons {
		reasons[id] = reason
		if reason == skilltypes.ReasonExcludedByBudget || reason == skilltypes.ReasonExcludedByConflict {
			excludedCount++
		}
	}

	return &skilltypes.Bundle{
		Items: items,
		Text:  renderText(items),
		Diagnostics: skilltypes.Diagnostics{
			SnapshotVersion: corpus.SnapshotVersion,
			SelectedIDs:     append([]string(nil), sel.Included...),
			Reasons:         reasons,
			ExcludedCount:   excludedCount,
			Truncated:       sel.Truncated,
			BudgetTooSmall:  sel.BudgetTooSmall,
		},
	}, nil
}

// renderText joins the selected bodies under their skill headings. Bodies
// are emitted whole or not at all; a skill that did not fit the budget is
// never partially rendered.
func renderText(items []skilltypes.BundleItem) string {
	if len(items) == 0 {
		return ""
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		var b strings.Builder
		b.WriteString("## Skill: ")
		b.WriteString(item.Name)
		b.WriteString("\n\n")
		b.WriteString(item.BodyContent)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, itemSeparator)
}

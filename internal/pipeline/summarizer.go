package pipeline

import (
	"context"
	"fmt"

	"github.com/repopulse/repopulse/internal/store"
)

// TemplateSummarizer is the fallback Analyzer used when no model-backed
// analyzer is configured. It renders a deterministic summary from the
// repository's own numbers.
type TemplateSummarizer struct{}

func NewTemplateSummarizer() *TemplateSummarizer {
	return &TemplateSummarizer{}
}

func (ts *TemplateSummarizer) Summarize(
	ctx context.Context,
	repo *store.Repository,
) (string, error) {
	language := "an unclassified"
	if repo.Language != nil && *repo.Language != "" {
		language = "a " + *repo.Language
	}
	return fmt.Sprintf(
		"%s is %s repository with %d stars, %d forks and %d open issues.",
		repo.FullName, language, repo.Stars, repo.Forks, repo.OpenIssues,
	), nil
}

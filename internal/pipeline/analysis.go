package pipeline

import (
	"context"
	"log"

	"github.com/repopulse/repopulse/internal/store"
)

// Analyzer is the port to whatever model produces repository summaries.
type Analyzer interface {
	Summarize(ctx context.Context, repo *store.Repository) (string, error)
}

type AnalysisRepoStore interface {
	ListRepositoriesMissingSummary(ctx context.Context, limit int64) ([]*store.Repository, error)
	UpdateRepositorySummary(ctx context.Context, id int64, summary string) error
}

// AnalysisRunner summarizes repositories that have none yet. A failed
// summary skips the repository instead of aborting the batch; it will be
// picked up again on the next tick.
type AnalysisRunner struct {
	analyzer  Analyzer
	repoStore AnalysisRepoStore
}

func NewAnalysisRunner(analyzer Analyzer, repoStore AnalysisRepoStore) *AnalysisRunner {
	return &AnalysisRunner{analyzer: analyzer, repoStore: repoStore}
}

func (r *AnalysisRunner) Run(ctx context.Context, params Params) (int64, error) {
	limit := params.Int64("limit", 25)
	repos, err := r.repoStore.ListRepositoriesMissingSummary(ctx, limit)
	if err != nil {
		return 0, err
	}

	var items int64
	for _, repo := range repos {
		summary, err := r.analyzer.Summarize(ctx, repo)
		if err != nil {
			log.Printf("err summarizing %s: %v", repo.FullName, err)
			continue
		}
		if err := r.repoStore.UpdateRepositorySummary(ctx, repo.RepositoryID, summary); err != nil {
			return items, err
		}
		items++
	}
	return items, nil
}

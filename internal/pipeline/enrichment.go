package pipeline

import (
	"context"

	"github.com/repopulse/repopulse/internal/store"
	"github.com/repopulse/repopulse/internal/util"
)

type EnrichRepoStore interface {
	ListRepositories(ctx context.Context) ([]*store.Repository, error)
	UpdateRepositoryEnrichment(ctx context.Context, id int64, description, language *string) error
}

// EnrichmentRunner backfills derived columns on repositories that came out
// of sync with gaps.
type EnrichmentRunner struct {
	repoStore EnrichRepoStore
	tx        TxRunner
}

func NewEnrichmentRunner(repoStore EnrichRepoStore, tx TxRunner) *EnrichmentRunner {
	return &EnrichmentRunner{repoStore: repoStore, tx: tx}
}

func (r *EnrichmentRunner) Run(ctx context.Context, params Params) (int64, error) {
	repos, err := r.repoStore.ListRepositories(ctx)
	if err != nil {
		return 0, err
	}

	var items int64
	err = r.tx.WithTxRetry(ctx, func(ctx context.Context) error {
		for _, repo := range repos {
			var description, language *string
			if repo.Description == nil || *repo.Description == "" {
				description = util.AsPtr("No description provided")
			}
			if repo.Language == nil || *repo.Language == "" {
				language = util.AsPtr("unknown")
			}
			if description == nil && language == nil && repo.EnrichedAt != nil {
				continue
			}
			if err := r.repoStore.UpdateRepositoryEnrichment(
				ctx,
				repo.RepositoryID,
				description,
				language,
			); err != nil {
				return err
			}
			items++
		}
		return nil
	})
	return items, err
}

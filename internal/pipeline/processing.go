package pipeline

import (
	"context"
)

type RankRepoStore interface {
	UpdateRepositoryScores(ctx context.Context) (int64, error)
	UpdateRepositoryRanks(ctx context.Context) (int64, error)
	UpdateContributorRanks(ctx context.Context) (int64, error)
}

// RankingRunner recomputes repository scores and repository/contributor
// ranks in one transaction, so readers never observe scores from one pass
// mixed with ranks from another.
type RankingRunner struct {
	repoStore RankRepoStore
	tx        TxRunner
}

func NewRankingRunner(repoStore RankRepoStore, tx TxRunner) *RankingRunner {
	return &RankingRunner{repoStore: repoStore, tx: tx}
}

func (r *RankingRunner) Run(ctx context.Context, params Params) (int64, error) {
	var items int64
	err := r.tx.WithTxRetry(ctx, func(ctx context.Context) error {
		scored, err := r.repoStore.UpdateRepositoryScores(ctx)
		if err != nil {
			return err
		}
		ranked, err := r.repoStore.UpdateRepositoryRanks(ctx)
		if err != nil {
			return err
		}
		contributors, err := r.repoStore.UpdateContributorRanks(ctx)
		if err != nil {
			return err
		}
		items = scored + ranked + contributors
		return nil
	})
	return items, err
}

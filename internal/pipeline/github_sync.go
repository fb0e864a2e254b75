package pipeline

import (
	"context"
	"log"

	"github.com/repopulse/repopulse/internal/store"
)

// RepoData is what the upstream GitHub client hands over for one repository.
type RepoData struct {
	FullName     string
	Description  *string
	Language     *string
	Stars        int64
	Forks        int64
	OpenIssues   int64
	Contributors []ContributorData
}

type ContributorData struct {
	Login     string
	Commits   int64
	Additions int64
	Deletions int64
}

// Fetcher is the narrow port to the GitHub API client. The client itself
// lives outside this module.
type Fetcher interface {
	FetchRepositories(ctx context.Context, query string, limit int64) ([]RepoData, error)
}

// TxRunner is the slice of the transaction manager the runners need.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	WithTxRetry(ctx context.Context, fn func(ctx context.Context) error) error
}

type SyncRepoStore interface {
	UpsertRepository(
		ctx context.Context,
		fullName string,
		description, language *string,
		stars, forks, openIssues int64,
	) (*store.Repository, error)
	UpsertContributor(
		ctx context.Context,
		repositoryID int64,
		login string,
		commits, additions, deletions int64,
	) (*store.Contributor, error)
}

// GithubSyncRunner pulls repository data from the fetcher and persists it.
// Each repository is one retryable transaction; the contributor batch runs
// in a nested transaction so a bad batch drops without losing the
// repository row itself.
type GithubSyncRunner struct {
	fetcher   Fetcher
	repoStore SyncRepoStore
	tx        TxRunner
}

func NewGithubSyncRunner(fetcher Fetcher, repoStore SyncRepoStore, tx TxRunner) *GithubSyncRunner {
	return &GithubSyncRunner{fetcher: fetcher, repoStore: repoStore, tx: tx}
}

func (r *GithubSyncRunner) Run(ctx context.Context, params Params) (int64, error) {
	query := params.String("query", "stars:>1000")
	limit := params.Int64("limit", 100)

	repos, err := r.fetcher.FetchRepositories(ctx, query, limit)
	if err != nil {
		return 0, err
	}

	var items int64
	for _, rd := range repos {
		err := r.tx.WithTxRetry(ctx, func(ctx context.Context) error {
			repo, err := r.repoStore.UpsertRepository(
				ctx,
				rd.FullName,
				rd.Description,
				rd.Language,
				rd.Stars,
				rd.Forks,
				rd.OpenIssues,
			)
			if err != nil {
				return err
			}
			if err := r.tx.WithTx(ctx, func(ctx context.Context) error {
				for _, cd := range rd.Contributors {
					if _, err := r.repoStore.UpsertContributor(
						ctx,
						repo.RepositoryID,
						cd.Login,
						cd.Commits,
						cd.Additions,
						cd.Deletions,
					); err != nil {
						return err
					}
				}
				return nil
			}); err != nil {
				// The savepoint rolled the batch back; keep the repository.
				log.Printf("err syncing contributors for %s: %v", rd.FullName, err)
			}
			return nil
		})
		if err != nil {
			return items, err
		}
		items++
	}
	return items, nil
}

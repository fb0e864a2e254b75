package store

import (
	"context"
	"time"
)

type Repository struct {
	RepositoryID int64 `param:"repository_id"`
	FullName     string
	Description  *string
	Language     *string
	Stars        int64
	Forks        int64
	OpenIssues   int64
	Score        float64
	Rank         *int64
	Summary      *string
	SyncedAt     *time.Time
	EnrichedAt   *time.Time
}

type Contributor struct {
	ContributorID           int64
	ContributorRepositoryID int64
	Login                   string
	Commits                 int64
	Additions               int64
	Deletions               int64
	Rank                    *int64
}

type RepoStore interface {
	UpsertRepository(
		ctx context.Context,
		fullName string,
		description, language *string,
		stars, forks, openIssues int64,
	) (*Repository, error)
	UpsertContributor(
		ctx context.Context,
		repositoryID int64,
		login string,
		commits, additions, deletions int64,
	) (*Contributor, error)
	ReadRepositoryByFullName(ctx context.Context, fullName string) (*Repository, error)
	ListRepositories(ctx context.Context) ([]*Repository, error)
	ListRepositoriesMissingSummary(ctx context.Context, limit int64) ([]*Repository, error)
	UpdateRepositoryScores(ctx context.Context) (int64, error)
	UpdateRepositoryRanks(ctx context.Context) (int64, error)
	UpdateContributorRanks(ctx context.Context) (int64, error)
	UpdateRepositoryEnrichment(ctx context.Context, id int64, description, language *string) error
	UpdateRepositorySummary(ctx context.Context, id int64, summary string) error
}

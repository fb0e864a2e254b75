package store

import (
	"context"
)

type RepoSQLiteStore struct {
	exec *Executor
}

func NewRepoSQLiteStore(exec *Executor) *RepoSQLiteStore {
	return &RepoSQLiteStore{exec}
}

func (store *RepoSQLiteStore) UpsertRepository(
	ctx context.Context,
	fullName string,
	description, language *string,
	stars, forks, openIssues int64,
) (*Repository, error) {
	r := new(Repository)
	query := `insert into repositories (
		full_name,
		description,
		language,
		stars,
		forks,
		open_issues,
		synced_at
	)
	values ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
	on conflict (full_name) do update
	set description = excluded.description,
		language = excluded.language,
		stars = excluded.stars,
		forks = excluded.forks,
		open_issues = excluded.open_issues,
		synced_at = CURRENT_TIMESTAMP
	returning *`
	if err := store.exec.Get(
		ctx, r, query,
		fullName,
		description,
		language,
		stars,
		forks,
		openIssues,
	); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *RepoSQLiteStore) UpsertContributor(
	ctx context.Context,
	repositoryID int64,
	login string,
	commits, additions, deletions int64,
) (*Contributor, error) {
	c := new(Contributor)
	query := `insert into contributors (
		contributor_repository_id,
		login,
		commits,
		additions,
		deletions
	)
	values ($1, $2, $3, $4, $5)
	on conflict (contributor_repository_id, login) do update
	set commits = excluded.commits,
		additions = excluded.additions,
		deletions = excluded.deletions
	returning *`
	if err := store.exec.Get(
		ctx, c, query,
		repositoryID,
		login,
		commits,
		additions,
		deletions,
	); err != nil {
		return nil, err
	}
	return c, nil
}

func (store *RepoSQLiteStore) ReadRepositoryByFullName(
	ctx context.Context,
	fullName string,
) (*Repository, error) {
	r := new(Repository)
	query := "select * from repositories where full_name = $1"
	if err := store.exec.Get(ctx, r, query, fullName); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *RepoSQLiteStore) ListRepositories(ctx context.Context) ([]*Repository, error) {
	repositories := make([]*Repository, 0)
	query := "select * from repositories order by repository_id"
	err := store.exec.Select(ctx, &repositories, query)
	return repositories, err
}

func (store *RepoSQLiteStore) ListRepositoriesMissingSummary(
	ctx context.Context,
	limit int64,
) ([]*Repository, error) {
	repositories := make([]*Repository, 0)
	query := `select * from repositories
	where summary is null
	order by stars desc, repository_id
	limit $1`
	err := store.exec.Select(ctx, &repositories, query, limit)
	return repositories, err
}

// UpdateRepositoryScores recomputes a popularity score from raw counters.
// Open issues drag the score down slightly so abandoned-but-starred projects
// sink over time.
func (store *RepoSQLiteStore) UpdateRepositoryScores(ctx context.Context) (int64, error) {
	query := `update repositories
	set score = stars * 2.0 + forks * 1.5 - open_issues * 0.1`
	return store.exec.Exec(ctx, query)
}

func (store *RepoSQLiteStore) UpdateRepositoryRanks(ctx context.Context) (int64, error) {
	query := `update repositories
	set rank = (
		select count(*) + 1
		from repositories r2
		where r2.score > repositories.score
	)`
	return store.exec.Exec(ctx, query)
}

func (store *RepoSQLiteStore) UpdateContributorRanks(ctx context.Context) (int64, error) {
	query := `update contributors
	set rank = (
		select count(*) + 1
		from contributors c2
		where c2.contributor_repository_id = contributors.contributor_repository_id
		and c2.commits > contributors.commits
	)`
	return store.exec.Exec(ctx, query)
}

func (store *RepoSQLiteStore) UpdateRepositoryEnrichment(
	ctx context.Context,
	id int64,
	description, language *string,
) error {
	query := `update repositories
	set description = coalesce($1, description),
		language = coalesce($2, language),
		enriched_at = CURRENT_TIMESTAMP
	where repository_id = $3`
	_, err := store.exec.Exec(ctx, query, description, language, id)
	return err
}

func (store *RepoSQLiteStore) UpdateRepositorySummary(
	ctx context.Context,
	id int64,
	summary string,
) error {
	query := `update repositories
	set summary = $1
	where repository_id = $2`
	_, err := store.exec.Exec(ctx, query, summary, id)
	return err
}

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopulse/repopulse/internal/store"
	"github.com/repopulse/repopulse/internal/util"
)

// failingAnalyzer refuses one repository and templates the rest.
type failingAnalyzer struct {
	failFullName string
	fallback     *TemplateSummarizer
}

func (a *failingAnalyzer) Summarize(
	ctx context.Context,
	repo *store.Repository,
) (string, error) {
	if repo.FullName == a.failFullName {
		return "", errors.New("model unavailable")
	}
	return a.fallback.Summarize(ctx, repo)
}

func TestAnalysisRunner_Run(t *testing.T) {
	t.Run("success - failed summaries skip, the rest persist", func(t *testing.T) {
		// arrange
		env := newRunnerStoreEnv(t)
		_, err := env.repoStore.UpsertRepository(
			context.Background(), "acme/summarized", util.AsPtr("desc"), util.AsPtr("Go"), 50, 5, 1)
		require.NoError(t, err)
		_, err = env.repoStore.UpsertRepository(
			context.Background(), "acme/stubborn", util.AsPtr("desc"), util.AsPtr("Go"), 40, 4, 1)
		require.NoError(t, err)

		analyzer := &failingAnalyzer{
			failFullName: "acme/stubborn",
			fallback:     NewTemplateSummarizer(),
		}
		runner := NewAnalysisRunner(analyzer, env.repoStore)

		// act
		items, err := runner.Run(context.Background(), Params{})

		// assert
		require.NoError(t, err)
		assert.EqualValues(t, 1, items)
		summarized, err := env.repoStore.ReadRepositoryByFullName(
			context.Background(), "acme/summarized")
		require.NoError(t, err)
		require.NotNil(t, summarized.Summary)
		assert.Contains(t, *summarized.Summary, "acme/summarized")
		stubborn, err := env.repoStore.ReadRepositoryByFullName(
			context.Background(), "acme/stubborn")
		require.NoError(t, err)
		assert.Nil(t, stubborn.Summary)

		// the skipped repository stays in the backlog for the next tick
		missing, err := env.repoStore.ListRepositoriesMissingSummary(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, missing, 1)
		assert.Equal(t, "acme/stubborn", missing[0].FullName)
	})
	t.Run("success - limit parameter bounds the batch", func(t *testing.T) {
		// arrange
		env := newRunnerStoreEnv(t)
		for _, name := range []string{"acme/a", "acme/b", "acme/c"} {
			_, err := env.repoStore.UpsertRepository(
				context.Background(), name, nil, nil, 1, 0, 0)
			require.NoError(t, err)
		}
		runner := NewAnalysisRunner(NewTemplateSummarizer(), env.repoStore)

		// act
		items, err := runner.Run(context.Background(), Params{"limit": float64(2)})

		// assert
		require.NoError(t, err)
		assert.EqualValues(t, 2, items)
	})
}

func TestTemplateSummarizer(t *testing.T) {
	t.Run("success - known language", func(t *testing.T) {
		// arrange
		repo := &store.Repository{
			FullName:   "acme/widgets",
			Language:   util.AsPtr("Go"),
			Stars:      10,
			Forks:      2,
			OpenIssues: 1,
		}

		// act
		summary, err := NewTemplateSummarizer().Summarize(context.Background(), repo)

		// assert
		assert.NoError(t, err)
		assert.Equal(t,
			"acme/widgets is a Go repository with 10 stars, 2 forks and 1 open issues.",
			summary,
		)
	})
	t.Run("success - missing language", func(t *testing.T) {
		// act
		summary, err := NewTemplateSummarizer().Summarize(
			context.Background(), &store.Repository{FullName: "acme/mystery"})

		// assert
		assert.NoError(t, err)
		assert.Contains(t, summary, "an unclassified repository")
	})
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/repopulse/repopulse/internal"
	"github.com/repopulse/repopulse/internal/github"
	"github.com/repopulse/repopulse/internal/pipeline"
	"github.com/repopulse/repopulse/internal/settings"
	"github.com/repopulse/repopulse/internal/store"
	"github.com/repopulse/repopulse/internal/util"
)

// repopulse runs a single pipeline stage outside the scheduler, for local
// runs and backfills.
func main() {
	pipelineType := flag.String("pipeline", "", "pipeline type to run")
	params := flag.String("params", "", "pipeline parameters as JSON")
	flag.Parse()

	if *pipelineType == "" {
		fmt.Fprintln(os.Stderr, "usage: repopulse -pipeline <type> [-params <json>]")
		os.Exit(2)
	}

	internal.InitializeConfiguration()
	if exists, _ := util.PathExists(internal.DotEnvPath); exists {
		settings.ReadDotenv(internal.DotEnvPath)
	}
	settings.Settings = settings.NewSettings()

	ctx := context.Background()

	db := store.NewDatabase(settings.Settings.SQLiteDbString())
	defer db.Close()
	conn, err := db.Conn(ctx)
	if err != nil {
		log.Fatal("fatal error opening sqlite database: ", err)
	}
	store.RunMigrations(conn)

	retryPolicy := store.NewRetryPolicy(
		internal.Config.RetryMaxAttempts,
		time.Duration(internal.Config.RetryBackoffMS)*time.Millisecond,
	)
	executor := store.NewExecutor(db, retryPolicy)
	txManager := store.NewTxManager(db, retryPolicy)
	historyStore := store.NewHistorySQLiteStore(executor)
	repoStore := store.NewRepoSQLiteStore(executor)

	fetcher := github.NewClient(os.Getenv("REPOPULSE_GITHUB_TOKEN"))
	registry := pipeline.NewRegistry()
	registry.Register(
		store.PipelineGithubSync,
		pipeline.NewGithubSyncRunner(fetcher, repoStore, txManager),
	)
	registry.Register(
		store.PipelineDataProcessing,
		pipeline.NewRankingRunner(repoStore, txManager),
	)
	registry.Register(
		store.PipelineDataEnrichment,
		pipeline.NewEnrichmentRunner(repoStore, txManager),
	)
	registry.Register(
		store.PipelineAIAnalysis,
		pipeline.NewAnalysisRunner(pipeline.NewTemplateSummarizer(), repoStore),
	)

	runner, ok := registry.Resolve(store.PipelineType(*pipelineType))
	if !ok {
		log.Fatalf("unknown pipeline type %q", *pipelineType)
	}
	runParams, err := pipeline.ParseParams(params)
	if err != nil {
		log.Fatal("invalid params: ", err)
	}

	entry, err := historyStore.CreateHistoryEntry(
		ctx, nil, store.PipelineType(*pipelineType),
	)
	if err != nil {
		log.Fatal("err creating history entry: ", err)
	}

	runCtx, cancel := context.WithTimeout(
		ctx, time.Duration(internal.Config.ExecutionTimeoutMinutes),
	)
	defer cancel()

	items, runErr := runner.Run(runCtx, runParams)

	status := store.StatusCompleted
	var errMessage *string
	if runErr != nil {
		status = store.StatusFailed
		errMessage = util.AsPtr(runErr.Error())
	}
	if err := historyStore.CompleteHistoryEntry(
		ctx, entry.HistoryID, status, items, errMessage,
	); err != nil {
		log.Println("err completing history entry:", err)
	}

	if runErr != nil {
		log.Fatalf("pipeline %s failed: %v", *pipelineType, runErr)
	}
	fmt.Printf("pipeline %s completed, %d items processed\n", *pipelineType, items)
}

package store

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/repopulse/repopulse/internal/util"
)

type historySQLiteStoreSuite struct {
	historyStore  *HistorySQLiteStore
	scheduleStore *ScheduleSQLiteStore
	database      *Database
	schedule      *Schedule
	suite.Suite
}

func TestHistorySQLiteStore(t *testing.T) {
	suite.Run(t, new(historySQLiteStoreSuite))
}

func (suite *historySQLiteStoreSuite) SetupSuite() {
	suite.database = NewDatabase(":memory:")
	db, err := suite.database.Conn(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	RunMigrations(db)
	exec := NewExecutor(suite.database, NewRetryPolicy(3, time.Millisecond))
	suite.historyStore = NewHistorySQLiteStore(exec)
	suite.scheduleStore = NewScheduleSQLiteStore(exec)

	s, err := suite.scheduleStore.CreateSchedule(
		context.Background(),
		"history-parent",
		PipelineGithubSync,
		"0 * * * *",
		"UTC",
		nil,
		true,
		nil,
	)
	if err != nil {
		log.Fatal(err)
	}
	suite.schedule = s
}

func (suite *historySQLiteStoreSuite) TearDownSuite() {
	_ = suite.database.Close()
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_CreateHistoryEntry() {
	suite.Run("success - scheduled entry starts running", func() {
		// act
		h, err := suite.historyStore.CreateHistoryEntry(
			context.Background(), &suite.schedule.ScheduleID, PipelineGithubSync)

		// assert
		suite.NoError(err)
		suite.NotNil(h)
		suite.NotZero(h.HistoryID)
		suite.Equal(StatusRunning, h.Status)
		suite.Equal(&suite.schedule.ScheduleID, h.HistoryScheduleID)
		suite.False(h.StartedAt.IsZero())
		suite.Nil(h.CompletedAt)
	})
	suite.Run("success - manual entry has no schedule", func() {
		// act
		h, err := suite.historyStore.CreateHistoryEntry(
			context.Background(), nil, PipelineDataProcessing)

		// assert
		suite.NoError(err)
		suite.NotNil(h)
		suite.Nil(h.HistoryScheduleID)
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_CompleteHistoryEntry() {
	suite.Run("success - completed with item count", func() {
		// arrange
		h, err := suite.historyStore.CreateHistoryEntry(
			context.Background(), &suite.schedule.ScheduleID, PipelineGithubSync)
		suite.NoError(err)

		// act
		completeErr := suite.historyStore.CompleteHistoryEntry(
			context.Background(), h.HistoryID, StatusCompleted, 42, nil)
		read, readErr := suite.historyStore.ReadHistoryEntryByID(
			context.Background(), h.HistoryID)

		// assert
		suite.NoError(completeErr)
		suite.NoError(readErr)
		suite.Equal(StatusCompleted, read.Status)
		suite.EqualValues(42, read.ItemsProcessed)
		suite.NotNil(read.CompletedAt)
		suite.Nil(read.ErrorMessage)
	})
	suite.Run("success - failed with error message", func() {
		// arrange
		h, err := suite.historyStore.CreateHistoryEntry(
			context.Background(), &suite.schedule.ScheduleID, PipelineAIAnalysis)
		suite.NoError(err)

		// act
		completeErr := suite.historyStore.CompleteHistoryEntry(
			context.Background(), h.HistoryID, StatusFailed, 0, util.AsPtr("model unavailable"))
		read, readErr := suite.historyStore.ReadHistoryEntryByID(
			context.Background(), h.HistoryID)

		// assert
		suite.NoError(completeErr)
		suite.NoError(readErr)
		suite.Equal(StatusFailed, read.Status)
		suite.Equal("model unavailable", *read.ErrorMessage)
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_ListHistory() {
	suite.Run("success - newest first with limit", func() {
		// arrange
		for range 3 {
			_, err := suite.historyStore.CreateHistoryEntry(
				context.Background(), &suite.schedule.ScheduleID, PipelineDataEnrichment)
			suite.NoError(err)
		}

		// act
		entries, err := suite.historyStore.ListHistory(context.Background(), nil, 2)

		// assert
		suite.NoError(err)
		suite.Len(entries, 2)
		suite.True(entries[0].HistoryID > entries[1].HistoryID)
	})
	suite.Run("success - filtered by pipeline type", func() {
		// act
		pt := PipelineDataEnrichment
		entries, err := suite.historyStore.ListHistory(context.Background(), &pt, 50)

		// assert
		suite.NoError(err)
		suite.NotEmpty(entries)
		for _, entry := range entries {
			suite.Equal(PipelineDataEnrichment, entry.PipelineType)
		}
	})
}

func (suite *historySQLiteStoreSuite) TestHistorySQLiteStore_ScheduleDeleteKeepsHistory() {
	suite.Run("success - schedule id is cleared, entry survives", func() {
		// arrange
		s, err := suite.scheduleStore.CreateSchedule(
			context.Background(),
			"short-lived",
			PipelineGithubSync,
			"0 * * * *",
			"UTC",
			nil,
			true,
			nil,
		)
		suite.NoError(err)
		h, err := suite.historyStore.CreateHistoryEntry(
			context.Background(), &s.ScheduleID, PipelineGithubSync)
		suite.NoError(err)

		// act
		suite.NoError(suite.scheduleStore.DeleteSchedule(context.Background(), s.ScheduleID))
		read, readErr := suite.historyStore.ReadHistoryEntryByID(
			context.Background(), h.HistoryID)

		// assert
		suite.NoError(readErr)
		suite.NotNil(read)
		suite.Nil(read.HistoryScheduleID)
	})
}

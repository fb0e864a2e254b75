package store

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/repopulse/repopulse/internal/util"
)

type notificationSQLiteStoreSuite struct {
	notificationStore *NotificationSQLiteStore
	database          *Database
	suite.Suite
}

func TestNotificationSQLiteStore(t *testing.T) {
	suite.Run(t, new(notificationSQLiteStoreSuite))
}

func (suite *notificationSQLiteStoreSuite) SetupSuite() {
	suite.database = NewDatabase(":memory:")
	db, err := suite.database.Conn(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	RunMigrations(db)
	exec := NewExecutor(suite.database, NewRetryPolicy(3, time.Millisecond))
	suite.notificationStore = NewNotificationSQLiteStore(exec)
}

func (suite *notificationSQLiteStoreSuite) TearDownSuite() {
	_ = suite.database.Close()
}

func (suite *notificationSQLiteStoreSuite) createNotification(
	notificationType string,
	level NotificationLevel,
) *Notification {
	n, err := suite.notificationStore.CreateNotification(
		context.Background(),
		notificationType,
		"title",
		"message",
		nil,
		level,
	)
	suite.NoError(err)
	suite.NotNil(n)
	return n
}

func (suite *notificationSQLiteStoreSuite) TestNotificationSQLiteStore_CreateNotification() {
	suite.Run("success - notification created unread", func() {
		// arrange
		details := util.AsPtr(`{"schedule_id": 3}`)

		// act
		n, err := suite.notificationStore.CreateNotification(
			context.Background(),
			"schedule:completed",
			"Pipeline completed",
			"hourly-sync finished",
			details,
			LevelSuccess,
		)

		// assert
		suite.NoError(err)
		suite.NotNil(n)
		suite.NotZero(n.NotificationID)
		suite.Equal(LevelSuccess, n.Level)
		suite.Equal(details, n.Details)
		suite.False(n.IsRead)
		suite.False(n.CreatedAt.IsZero())
	})
}

func (suite *notificationSQLiteStoreSuite) TestNotificationSQLiteStore_ListNotifications() {
	// arrange
	failed := suite.createNotification("schedule:failed", LevelError)
	completed := suite.createNotification("schedule:completed", LevelSuccess)
	suite.createNotification("schedule:completed", LevelSuccess)

	suite.Run("success - paged newest first with total", func() {
		// act
		page, total, err := suite.notificationStore.ListNotifications(
			context.Background(), NotificationFilter{Limit: 2})

		// assert
		suite.NoError(err)
		suite.True(total >= 3)
		suite.Len(page, 2)
		suite.True(page[0].NotificationID > page[1].NotificationID)
	})
	suite.Run("success - offset moves the window", func() {
		// act
		first, _, err := suite.notificationStore.ListNotifications(
			context.Background(), NotificationFilter{Limit: 1})
		suite.NoError(err)
		second, _, err := suite.notificationStore.ListNotifications(
			context.Background(), NotificationFilter{Limit: 1, Offset: 1})

		// assert
		suite.NoError(err)
		suite.Len(second, 1)
		suite.NotEqual(first[0].NotificationID, second[0].NotificationID)
	})
	suite.Run("success - filtered by type and level", func() {
		// act
		page, total, err := suite.notificationStore.ListNotifications(
			context.Background(), NotificationFilter{
				Limit: 10,
				Type:  util.AsPtr("schedule:failed"),
				Level: util.AsPtr(LevelError),
			})

		// assert
		suite.NoError(err)
		suite.EqualValues(1, total)
		suite.Len(page, 1)
		suite.Equal(failed.NotificationID, page[0].NotificationID)
	})
	suite.Run("success - unread only", func() {
		// arrange
		suite.NoError(suite.notificationStore.MarkNotificationRead(
			context.Background(), completed.NotificationID))

		// act
		page, _, err := suite.notificationStore.ListNotifications(
			context.Background(), NotificationFilter{Limit: 10, UnreadOnly: true})

		// assert
		suite.NoError(err)
		for _, n := range page {
			suite.False(n.IsRead)
			suite.NotEqual(completed.NotificationID, n.NotificationID)
		}
	})
}

func (suite *notificationSQLiteStoreSuite) TestNotificationSQLiteStore_MarkAllNotificationsRead() {
	suite.Run("success - every unread notification flips", func() {
		// arrange
		suite.createNotification("schedule:created", LevelInfo)
		suite.createNotification("schedule:created", LevelInfo)

		// act
		affected, err := suite.notificationStore.MarkAllNotificationsRead(context.Background())
		_, unread, listErr := suite.notificationStore.ListNotifications(
			context.Background(), NotificationFilter{Limit: 1, UnreadOnly: true})

		// assert
		suite.NoError(err)
		suite.True(affected >= 2)
		suite.NoError(listErr)
		suite.EqualValues(0, unread)
	})
}

func (suite *notificationSQLiteStoreSuite) TestNotificationSQLiteStore_NotificationSettings() {
	suite.Run("success - setting created active", func() {
		// act
		s, err := suite.notificationStore.CreateNotificationSetting(
			context.Background(),
			"webhook",
			"https://hooks.example.com/alerts",
			LevelError,
		)

		// assert
		suite.NoError(err)
		suite.NotNil(s)
		suite.NotZero(s.SettingID)
		suite.True(s.IsActive)
	})
	suite.Run("success - listing filters by level", func() {
		// arrange
		_, err := suite.notificationStore.CreateNotificationSetting(
			context.Background(),
			"webhook",
			"https://hooks.example.com/info",
			LevelInfo,
		)
		suite.NoError(err)

		// act
		settings, err := suite.notificationStore.ListActiveNotificationSettings(
			context.Background(), LevelError)

		// assert
		suite.NoError(err)
		suite.NotEmpty(settings)
		for _, s := range settings {
			suite.Equal(LevelError, s.MinLevel)
			suite.True(s.IsActive)
		}
	})
}

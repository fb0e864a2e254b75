package internal

const (
	DotEnvPath              = "./.env"
	MigrationsDir           = "migrations"
	ScheduleSeedPath        = "schedules.yml"
	WebhookTriggerKeyHeader = "X-RepoPulse-Webhook-Key"
)

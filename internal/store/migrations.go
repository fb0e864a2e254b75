package store

import (
	"database/sql"
	"log"

	assets "github.com/repopulse/repopulse"
	"github.com/pressly/goose/v3"
)

func RunMigrations(db *sql.DB) {
	goose.SetBaseFS(assets.MigrationsFS)
	if err := goose.SetDialect("sqlite"); err != nil {
		log.Fatal(err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatal(err)
	}
}

package migrations

import (
	"strings"

	"github.com/bridgelock/listener/db"
	migrate "github.com/rubenv/sql-migrate"

	_ "embed"
)

const upDownSeparator = "-- +migrate Up"

//go:embed checkpoint0001.sql
var mig001 string
var mig001splitted = strings.Split(mig001, upDownSeparator)

var checkpointMigrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id:   "checkpoint001",
			Up:   []string{mig001splitted[1]},
			Down: []string{mig001splitted[0]},
		},
	},
}

func RunMigrations(dbPath string) error {
	return db.RunMigrations(dbPath, checkpointMigrations)
}

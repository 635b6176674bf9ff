package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// gooseLogger routes goose output through zap.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

// Fatalf is not fatal here; goose also returns the error to the caller.
func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}

// Migrate runs a goose command ("up", "down" or "status") against the embedded migrations.
func Migrate(conn *sql.DB, command string, log *zap.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: log.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.Up(conn, migrationsDir)
	case "down":
		err = goose.Down(conn, migrationsDir)
	case "status":
		err = goose.Status(conn, migrationsDir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

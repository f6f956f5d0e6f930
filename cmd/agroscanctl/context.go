package main

import (
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/25S2-PRT681-Group-D/server/internal"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

// commandContext opens the database lazily so that --help works offline.
type commandContext struct {
	databaseFlag *string
	logLevelFlag *string

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error
}

func newCommandContext(databaseFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		databaseFlag: databaseFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) databaseURL() string {
	if c.databaseFlag != nil {
		if v := strings.TrimSpace(*c.databaseFlag); v != "" {
			return v
		}
	}
	_ = godotenv.Load()
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

func (c *commandContext) logger() *slog.Logger {
	level := "info"
	if c.logLevelFlag != nil && *c.logLevelFlag != "" {
		level = *c.logLevelFlag
	}
	return internal.NewLogger(os.Stderr, "development", level)
}

func (c *commandContext) ensureDB() (*sql.DB, error) {
	c.dbOnce.Do(func() {
		url := c.databaseURL()
		if url == "" {
			c.dbErr = errors.New("database URL is required: pass --database-url or set DATABASE_URL")
			return
		}
		db, err := sql.Open("pgx", url)
		if err != nil {
			c.dbErr = err
			return
		}
		if err := db.Ping(); err != nil {
			db.Close()
			c.dbErr = err
			return
		}
		c.db = db
	})
	return c.db, c.dbErr
}

// withQueries runs fn with an open database and its query set.
func (c *commandContext) withQueries(fn func(db *sql.DB, queries *repository.Queries) error) error {
	db, err := c.ensureDB()
	if err != nil {
		return err
	}
	return fn(db, repository.New(db))
}

func (c *commandContext) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

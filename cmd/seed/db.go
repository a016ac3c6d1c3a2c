package main

import (
	"database/sql"
	"fmt"

	"github.com/andresuchdata/stockcount/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

const dbKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	dsn := c.String("db-url")
	if dsn == "" {
		dsn = config.Load().Database.DSN()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	c.App.Metadata = map[string]interface{}{dbKey: db}
	return nil
}

func dbFrom(c *cli.Context) (*sql.DB, error) {
	db, ok := c.App.Metadata[dbKey].(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not found in context")
	}
	return db, nil
}

func closeDB(c *cli.Context) error {
	if db, err := dbFrom(c); err == nil {
		return db.Close()
	}
	return nil
}

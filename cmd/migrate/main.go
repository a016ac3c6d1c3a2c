package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/andresuchdata/stockcount/pkg/logger"
	"github.com/andresuchdata/stockcount/pkg/migrate"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

const dbKey = "db"

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "Apply the embedded postgres schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string (defaults to DB_* settings)",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			gooseCommand("up", "Migrate to the latest version"),
			gooseCommand("down", "Roll back the latest migration"),
			gooseCommand("status", "Print the status of every migration"),
			{
				Name:      "version",
				Usage:     "Migrate up or down to a target version",
				ArgsUsage: "<YYYYMMDDHHMMSS>",
				Before:    openDB,
				After:     closeDB,
				Action: func(c *cli.Context) error {
					target := c.Args().First()
					if target == "" {
						return fmt.Errorf("target version is required")
					}
					return migrate.MigrateToVersion(c.Context, dbFrom(c), target)
				},
			},
			{
				Name:  "validate",
				Usage: "Check migration file names and goose annotations",
				Action: func(c *cli.Context) error {
					if err := migrate.Validate(migrate.Migrations); err != nil {
						return err
					}
					fmt.Println("migration validation passed")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("migrate failed")
	}
}

func gooseCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:   name,
		Usage:  usage,
		Before: openDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			if err := migrate.Run(c.Context, dbFrom(c), name); err != nil {
				return err
			}
			logger.Log.Info().Str("cmd", name).Msg("migrate finished")
			return nil
		},
	}
}

func openDB(c *cli.Context) error {
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

func dbFrom(c *cli.Context) *sql.DB {
	db, _ := c.App.Metadata[dbKey].(*sql.DB)
	return db
}

func closeDB(c *cli.Context) error {
	if db := dbFrom(c); db != nil {
		return db.Close()
	}
	return nil
}

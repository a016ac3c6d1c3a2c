package main

import (
	"os"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// seedActor performs catalog writes made from the command line.
var seedActor = domain.Actor{StaffID: "seed", Role: domain.RoleBoss}

func main() {
	_ = godotenv.Load(".env")

	app := &cli.App{
		Name:  "seed",
		Usage: "Load catalog and staff data, mint tokens and export orders",
		Commands: []*cli.Command{
			{
				Name:  "catalog",
				Usage: "Import items from a CSV or XLSX catalog into the configured store",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Usage:   "Catalog file (.csv or .xlsx)",
						EnvVars: []string{"SEED_CATALOG_FILE"},
					},
					&cli.StringFlag{
						Name:    "drive-folder",
						Usage:   "Google Drive folder whose newest catalog is imported",
						EnvVars: []string{"SEED_DRIVE_FOLDER"},
					},
				},
				Action: runCatalog,
			},
			{
				Name:  "staff",
				Usage: "Upsert staff contacts into postgres",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "CSV with id,name,role,phone,email",
						Required: true,
						EnvVars:  []string{"SEED_STAFF_FILE"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runStaff,
			},
			{
				Name:  "token",
				Usage: "Mint an access token for a staff member",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "staff-id", Required: true},
					&cli.StringFlag{Name: "role", Value: string(domain.RoleStaff)},
				},
				Action: runToken,
			},
			{
				Name:  "export",
				Usage: "Write a purchase order document into the export directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "order-id", Required: true},
					&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv or xlsx"},
					&cli.BoolFlag{Name: "archive", Usage: "Also upload the document to object storage"},
				},
				Action: runExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

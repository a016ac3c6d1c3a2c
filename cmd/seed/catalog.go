package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/stockcount/internal/app"
	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/andresuchdata/stockcount/internal/drive"
	"github.com/andresuchdata/stockcount/internal/importer"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/andresuchdata/stockcount/pkg/logger"
	"github.com/urfave/cli/v2"
)

func runCatalog(c *cli.Context) error {
	cfg := config.Load()
	logger.Setup(cfg.Server.Mode, "stockcount-seed")

	var (
		rows []service.ItemInput
		err  error
	)
	switch {
	case c.String("drive-folder") != "":
		rows, err = readDriveCatalog(c.Context, cfg, c.String("drive-folder"))
	case c.String("file") != "":
		rows, err = readLocalCatalog(c.String("file"))
	default:
		return fmt.Errorf("one of --file or --drive-folder is required")
	}
	if err != nil {
		return err
	}

	application, err := app.New(c.Context, cfg, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	res := importer.Import(c.Context, application.Services.Items, seedActor, rows)
	for name, reason := range res.Failed {
		fmt.Printf("skipped %s: %s\n", name, reason)
	}
	fmt.Printf("imported %d of %d items\n", res.Created, len(rows))
	return nil
}

func readLocalCatalog(path string) ([]service.ItemInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer f.Close()
	return importer.ReadFile(f, filepath.Base(path))
}

// readDriveCatalog downloads the newest catalog of the folder using the
// service account configured for the Sheets store.
func readDriveCatalog(ctx context.Context, cfg *config.Config, folderID string) ([]service.ItemInput, error) {
	svc, err := drive.NewService(ctx, cfg.Sheets.CredentialsJSON)
	if err != nil {
		return nil, err
	}
	file, err := svc.LatestCatalog(ctx, folderID)
	if err != nil {
		return nil, err
	}
	logger.Log.Info().Str("file", file.Name).Str("modified", file.ModifiedTime).Msg("importing catalog from drive")

	var buf bytes.Buffer
	if err := svc.DownloadFile(ctx, file.ID, &buf); err != nil {
		return nil, err
	}
	return importer.ReadFile(&buf, file.Name)
}

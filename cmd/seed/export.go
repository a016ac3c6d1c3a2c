package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/stockcount/internal/app"
	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/andresuchdata/stockcount/internal/export"
	"github.com/andresuchdata/stockcount/internal/storage"
	"github.com/andresuchdata/stockcount/pkg/logger"
	"github.com/urfave/cli/v2"
)

func runExport(c *cli.Context) error {
	cfg := config.Load()
	logger.Setup(cfg.Server.Mode, "stockcount-seed")

	format, err := export.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	application, err := app.New(c.Context, cfg, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	order, err := application.Services.Orders.Get(c.Context, c.String("order-id"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteOrder(&buf, order, format); err != nil {
		return err
	}

	filename := export.Filename(order, format)
	path := filepath.Join(cfg.App.ExportDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Println(path)

	if c.Bool("archive") {
		archive := application.Services.Archive
		if archive == nil {
			return fmt.Errorf("object storage is not enabled")
		}
		key := storage.OrderKey(filename)
		if err := archive.UploadObject(c.Context, key, buf.Bytes(), format.ContentType()); err != nil {
			return err
		}
		logger.Log.Info().Str("key", key).Msg("export archived")
	}
	return nil
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/morkdaniel/budget-tracker/internal/amqp"
	"github.com/morkdaniel/budget-tracker/internal/cli"
	"github.com/morkdaniel/budget-tracker/internal/mirror"
	gsheet "github.com/morkdaniel/budget-tracker/internal/mirror/google"
	"github.com/morkdaniel/budget-tracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting budget-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	store := cli.OpenStore(logger, cfg)
	defer store.Close()

	// Google Sheets mirror is optional.
	var entryMirror mirror.EntryMirror
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		entryMirror = sheetsClient
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Local backup files are optional too.
	var backupWriter mirror.BackupWriter
	if cfg.BackupDir != "" {
		fb, err := mirror.NewFileBackup(cfg.BackupDir)
		if err != nil {
			logger.Error("Failed to initialize backup directory", "error", err, "dir", cfg.BackupDir)
			os.Exit(1)
		}
		backupWriter = fb
		logger.Info("File backups initialized", "dir", cfg.BackupDir)
	} else {
		logger.Info("File backups disabled - no BACKUP_DIR provided")
	}

	if entryMirror == nil && backupWriter == nil {
		logger.Error("Nothing to do: configure GOOGLE_SPREADSHEET_ID and/or BACKUP_DIR")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	backupWorker := worker.New(store, entryMirror, backupWriter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go func() {
		if err := amqpClient.ConsumeChanges(ctx, backupWorker.HandleChange); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

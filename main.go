package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"surveystat/adapters/export"
	"surveystat/adapters/postgres"
	"surveystat/app"
	"surveystat/internal"
	"surveystat/internal/config"
	"surveystat/internal/errors"
	"surveystat/ports"
)

func main() {
	if err := run(); err != nil {
		internal.DefaultLogger.Error("%s: %v", errors.GetCode(err), err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var archive ports.RunArchive
	if cfg.Archive.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.Archive.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		archive = pg
	}

	reader := export.NewFileReader(cfg.Input.ExportFile)
	pipeline := app.NewPipelineService(cfg, reader, archive)

	result, err := pipeline.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("run complete: %d participants included, %d tests executed, reports in %s\n",
		result.Manifest.Included, result.Manifest.TestsExecuted, cfg.Output.Dir)
	return nil
}

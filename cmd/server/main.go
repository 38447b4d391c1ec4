package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/server"
	"github.com/dmitrijs2005/finsync/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	// a local .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf(".env: %v", err)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}

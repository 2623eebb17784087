// @title Mindora Hub API
// @version 1.0
// @description Content sync and dashboard view service for the Mindora children app.

// @host localhost:8080
// @BasePath /api

package main

import (
	"flag"
	"fmt"
	"log"
	"mindora_hub/internal/app"
	"mindora_hub/internal/config"
	"mindora_hub/pkg/logger"
	"os"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding config.yaml")
	checkOnly := flag.Bool("check-config", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *checkOnly {
		source := cfg.SourceFile
		if source == "" {
			source = "defaults and environment"
		}
		fmt.Fprintf(os.Stdout, "config OK (%s)\n", source)
		return
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	application.Run()
}

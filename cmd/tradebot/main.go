package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/app"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
)

func main() {
	configPath := flag.String("config", "", "config file path (empty for defaults)")
	envFile := flag.String("env", ".env", "dotenv file with overrides")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath, *envFile)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	a, cleanup, err := app.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run blocks until SIGINT/SIGTERM.
	err = a.Run(context.Background())
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

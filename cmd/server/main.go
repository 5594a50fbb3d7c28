package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/api"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/backends/skyflow"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/cache"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/creds"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ports"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// Local HTTP entry point, mainly for development and integration testing; the
// Lambda entry point in cmd/lambda serves the same handlers.
func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}

	cfg, err := types.LoadServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load service config: %v", err)
	}

	credentials, err := creds.Detect(context.Background())
	if err != nil {
		log.Fatalf("Failed to detect Skyflow credentials: %v", err)
	}
	tokens := credentials.TokenSource()

	clients := cache.New(func(key cache.ClientKey) ports.VaultService {
		return skyflow.New(key.Cluster, key.Vault, key.Env, tokens)
	})

	api.RunServer(cfg.Port, api.NewHandler(clients, cfg.BatchSizes))
}

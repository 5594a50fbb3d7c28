//go:build lambda

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/api"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/backends/skyflow"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/cache"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/creds"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ports"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// ProxyHandler adapts API Gateway proxy events onto the shared request cores.
type ProxyHandler struct {
	API *api.Handler
}

func main() {
	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if err != nil {
		log.Info("The .env file not found.")
	}

	ctx := context.Background()

	cfg, err := types.LoadServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load service config: %v", err)
	}

	// Credential shape is detected once here; request handlers never
	// re-inspect it.
	credentials, err := creds.Detect(ctx)
	if err != nil {
		log.Fatalf("Failed to detect Skyflow credentials: %v", err)
	}
	tokens := credentials.TokenSource()

	clients := cache.New(func(key cache.ClientKey) ports.VaultService {
		return skyflow.New(key.Cluster, key.Vault, key.Env, tokens)
	})

	handler := &ProxyHandler{API: api.NewHandler(clients, cfg.BatchSizes)}

	// Start Lambda runtime
	lambda.Start(handler.HandleRequest)
}

// HandleRequest routes one API Gateway proxy event to the matching endpoint.
func (h *ProxyHandler) HandleRequest(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log.WithFields(log.Fields{
		"path":   event.Path,
		"method": event.HTTPMethod,
	}).Debug("Processing request")

	if event.HTTPMethod != http.MethodPost {
		return respond(http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
	}

	headers := api.NormalizeHeaderMap(event.Headers)
	body := []byte(event.Body)

	switch event.Path {
	case "/v1/snowflake":
		status, resp := h.API.Snowflake(ctx, headers, body)
		return respond(status, resp)
	case "/v1/execute":
		status, resp := h.API.Execute(ctx, headers, body)
		return respond(status, resp)
	case "/health":
		return respond(http.StatusOK, map[string]string{"status": "ok"})
	default:
		return respond(http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func respond(status int, v any) (events.APIGatewayProxyResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("Failed to marshal response")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"success":false,"error":{"message":"failed to marshal response","type":"UnknownError"}}`,
		}, nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}, nil
}

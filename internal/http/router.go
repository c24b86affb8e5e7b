package httpserver

import (
	"log"
	"net/http"

	"github.com/jungeol66104/firework-web-sub001/internal/http/handlers"
	"github.com/jungeol66104/firework-web-sub001/internal/http/middleware"
	"github.com/jungeol66104/firework-web-sub001/internal/queue"
)

type RouterDependencies struct {
	API               *handlers.API
	Logger            *log.Logger
	AuthToken         string
	WebhookSigningKey string
	CORSOrigins       []string
	RateLimitRPS      float64
	RateLimitBurst    int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/interviews/", deps.API.Interviews)
	mux.HandleFunc("/v1/jobs/cancel", deps.API.CancelJob)
	mux.HandleFunc("/v1/jobs/", deps.API.JobStatus)
	mux.HandleFunc("/v1/versions/", deps.API.Versions)
	mux.HandleFunc("/v1/tokens/balance", deps.API.TokenBalance)
	mux.HandleFunc("/v1/tokens/credit", deps.API.TokenCredit)
	for kind, path := range queue.WebhookRoutes() {
		mux.HandleFunc(path, deps.API.Process(kind))
	}

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.Signature(deps.WebhookSigningKey)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"

	"fintrack/internal/log"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Services are the operations the API exposes.
type Services struct {
	Ingestion *services.IngestionService
	Budgets   *services.BudgetService
	Summaries *services.SummaryService
	Chat      *services.ChatService

	// Ready backs /readyz, typically the store's Ping.
	Ready func(ctx context.Context) error
}

// Options tune the server around the services.
type Options struct {
	ClientURL      string
	JWTSecret      string
	MaxUploadBytes int64
	// TrustedProxies are extra CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc       Services
	auth      *Authenticator
	maxUpload int64
	tracer    *trace.Middleware
	logger    *log.Logger
	now       func() time.Time
}

const defaultMaxUpload = 5 << 20

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Component(log.ComponentHTTP)
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	s := &Server{
		svc:       svc,
		auth:      NewAuthenticator(opts.JWTSecret),
		maxUpload: maxUpload,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.auth.Middleware(h))
	}
	api("POST /api/transactions", s.handleCreateTransaction)
	api("GET /api/transactions", s.handleListTransactions)
	api("POST /api/transactions/upload", s.handleUploadTransactions)
	api("GET /api/budgets", s.handleBudgetStatus)
	api("POST /api/budgets", s.handleSetBudget)
	api("POST /api/summaries/monthly", s.handleMonthlySummary)
	api("GET /api/summaries/goal", s.handleGetGoal)
	api("POST /api/summaries/goal", s.handleSetGoal)
	api("POST /api/chat/query", s.handleChat)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(opts.ClientURL),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			ownerHeader,
			trace.RequestIDHeader,
		},
		ExposedHeaders:   []string{trace.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	ip := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := ip.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(ip.ExtractClientIP, logger)
	s.tracer = tracer

	s.Server = http.Server{
		Addr:    addr,
		Handler: tracer.Middleware(headers.Middleware(c.Handler(mux))),
	}
	return s
}

// Metrics reports request counters since the server was built.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func allowedOrigins(clientURL string) []string {
	if clientURL == "" {
		return []string{"http://localhost:5173"}
	}
	return []string{clientURL}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

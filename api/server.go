package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Finance-Assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/checkpoint"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
)

const DefaultMaxFileSize = 50_000_000

type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8000"`
	UploadDir       string        `envconfig:"UPLOAD_DIR" split_words:"true" default:"uploads"`
	MaxFileSize     int64         `envconfig:"MAX_FILE_SIZE" split_words:"true" default:"50000000"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"180s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// TurnHandler runs one chat turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req orchestrator.TurnRequest) (orchestrator.TurnResponse, error)
}

// SessionReader lists checkpointed sessions.
type SessionReader interface {
	ListSessions(ctx context.Context, limit int) ([]checkpoint.SessionInfo, error)
	Latest(ctx context.Context, sessionID string) (statex.Snapshot, error)
}

type Deps struct {
	Turns         TurnHandler
	Sessions      SessionReader
	MemoryBackend string
}

type Server struct {
	cfg  Config
	deps Deps
	mux  *http.ServeMux
	now  func() time.Time
}

func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Turns == nil {
		return nil, errors.New("turn handler is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{cfg: cfg, deps: deps, mux: http.NewServeMux(), now: time.Now}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("GET /sessions", s.handleSessions)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleSession)
}

// Handler returns the routed mux behind CORS and request logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = cors(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.NewHandler(log.Logger)(h)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	log.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
		h.Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func logger(r *http.Request) *zerolog.Logger {
	return hlog.FromRequest(r)
}

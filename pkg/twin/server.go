// Package twin is an in-process stand-in for the SkillSync ai-call backend.
// It serves the same routes with canned interview content so the client can
// be driven end to end without the real service.
package twin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/harunnryd/skillcall/pkg/backend"
)

type Options struct {
	// Prefix is the API mount point, "/api" by default.
	Prefix  string
	Secret  string
	Latency time.Duration
	Bank    *Bank
	// VoiceDisabled makes voice-answer report the speech model as missing.
	VoiceDisabled bool
	Logger        *slog.Logger
}

// Worker is a saved profile.
type Worker struct {
	ID      string          `json:"id"`
	Phone   string          `json:"phone"`
	Name    string          `json:"name"`
	Profile backend.Profile `json:"profile"`
	SavedAt time.Time       `json:"saved_at"`
}

type otpRecord struct {
	otp      string
	last4    string
	verified bool
}

type Server struct {
	opts   Options
	bank   *Bank
	router *chi.Mux
	log    *slog.Logger

	mu      sync.Mutex
	otps    map[string]*otpRecord
	workers map[string]Worker
	faults  map[string]int
}

func New(opts Options) *Server {
	if opts.Prefix == "" {
		opts.Prefix = "/api"
	}
	opts.Prefix = "/" + strings.Trim(opts.Prefix, "/")
	if opts.Bank == nil {
		opts.Bank = DefaultBank()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		opts:    opts,
		bank:    opts.Bank,
		log:     log.With(slog.String("component", "twin")),
		otps:    make(map[string]*otpRecord),
		workers: make(map[string]Worker),
		faults:  make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/twin", func(r chi.Router) {
		r.Get("/workers", s.handleWorkers)
		r.Post("/faults", s.handleFault)
	})
	r.Route(opts.Prefix+"/ai-call", s.Routes)
	s.router = r
	return s
}

// Routes mounts the ai-call endpoints.
func (s *Server) Routes(r chi.Router) {
	if s.opts.Secret != "" {
		r.Use(s.requireToken)
	}
	r.Use(s.latency)
	r.Get("/languages", s.endpoint("languages", s.handleLanguages))
	r.Post("/questions", s.endpoint("questions", s.handleQuestions))
	r.Post("/tts", s.endpoint("tts", s.handleTTS))
	r.Post("/translate", s.endpoint("translate", s.handleTranslate))
	r.Post("/generate-otp", s.endpoint("generate-otp", s.handleGenerateOTP))
	r.Post("/verify-otp", s.endpoint("verify-otp", s.handleVerifyOTP))
	r.Post("/extract-profile", s.endpoint("extract-profile", s.handleExtract))
	r.Post("/voice-answer", s.endpoint("voice-answer", s.handleVoiceAnswer))
	r.Post("/save-profile", s.endpoint("save-profile", s.handleSave))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("twin_listening", slog.String("addr", addr), slog.String("prefix", s.opts.Prefix))
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
	s.log.Info("twin_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// SetFault makes endpoint answer with status until cleared with status 0.
// Endpoint names are the route suffixes, e.g. "translate".
func (s *Server) SetFault(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.faults, endpoint)
		return
	}
	s.faults[endpoint] = status
}

// Workers returns the saved profiles ordered by save time.
func (s *Server) Workers() []Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Worker, 0, len(s.workers))
	for _, w := range s.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.Before(out[j].SavedAt) })
	return out
}

func (s *Server) endpoint(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.faults[name]
		s.mu.Unlock()
		if status != 0 {
			s.log.Debug("twin_fault", slog.String("endpoint", name), slog.Int("status", status))
			Error(w, status, "injected fault")
			return
		}
		h(w, r)
	}
}

func (s *Server) latency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := s.opts.Latency; d > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-r.Context().Done():
				t.Stop()
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("twin_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a {"detail": message} body, the shape the real backend uses.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"detail": message})
}

// internal/httpserver/server.go
//
// HTTP server wiring for the GuessMaster web app.
// Responsibilities:
//   - Router + middleware (request IDs, access log, timeouts, panic recovery, CORS).
//   - Public endpoints: pages ("/", "/singleplayer", "/multiplayer"), "/static/*", "/health".
//   - Game API under /api: start-game, set-target, guess, end-game, game state.
//   - Score API under /api/scores: read, record a match, admin reset.
//
// Notes:
//   - The current game travels in a signed cookie (see cookie.go); API clients
//     without cookies may pass gameId in the body instead.
//   - JSON errors are always {"error": "..."}.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessmaster/assets"
	"github.com/robalobadob/guessmaster/internal/game"
	"github.com/robalobadob/guessmaster/internal/ledger"
	"github.com/robalobadob/guessmaster/internal/manager"
)

// statusSessionExpired tells the browser to drop its game and start over.
const statusSessionExpired = 440

// Options configures the HTTP layer.
type Options struct {
	Addr              string // listen address, e.g. ":5175"
	SessionSecret     string
	SecureCookies     bool
	SessionTTL        time.Duration
	AdminPasswordHash string // bcrypt; empty disables /api/scores/reset
	ClientOrigin      string // optional cross-origin client allowed to call the API
}

// Server bundles router, game manager and page templates.
type Server struct {
	r         *chi.Mux
	games     *manager.Manager
	cookies   gameCookie
	pages     *template.Template
	adminHash []byte
	srv       *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(games *manager.Manager, opts Options) (*Server, error) {
	pages, err := template.ParseFS(assets.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}

	s := &Server{
		r:         chi.NewRouter(),
		games:     games,
		cookies:   newGameCookie(opts.SessionSecret, opts.SecureCookies, opts.SessionTTL),
		pages:     pages,
		adminHash: []byte(opts.AdminPasswordHash),
	}
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))     // request-scoped zerolog logger
	s.r.Use(accessLog)                       // one line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

	// --- diagnostics ---
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// --- pages + static ---
	s.mountPages()

	// --- API ---
	s.r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)
		r.Use(cors(opts.ClientOrigin))
		s.mountGame(r)
		s.mountScores(r)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found")
		})
	})

	return s, nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run listens on the configured address and serves until Shutdown.
// Shutdown may be called before Run; Run then returns nil at once.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on API responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single configured origin.
// With no origin configured the API is same-origin only.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if origin == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one structured line per request.
func accessLog(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", size).
			Dur("duration", d).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("http request")
	})(next)
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

// gameErrorStatus maps domain errors onto HTTP status codes.
func gameErrorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrNoActiveSession):
		return statusSessionExpired
	case errors.Is(err, game.ErrInvalidGuess),
		errors.Is(err, game.ErrInvalidRange),
		errors.Is(err, game.ErrInvalidPlayers),
		errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, game.ErrUnknownDifficulty),
		errors.Is(err, ledger.ErrInvalidScore):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeGameError logs and reports err; expired sessions also clear the cookie.
func (s *Server) writeGameError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := gameErrorStatus(err)
	if status == statusSessionExpired {
		s.cookies.clear(w)
	}
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg(fallback)
		writeError(w, status, fallback)
		return
	}
	hlog.FromRequest(r).Warn().Err(err).Msg("game error")
	writeError(w, status, err.Error())
}

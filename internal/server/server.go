package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TwinBot/internal/config"
	"github.com/digkill/TwinBot/internal/models"
	"github.com/digkill/TwinBot/internal/repository"
)

// maxUpdateBytes bounds a single webhook body; Telegram updates are far smaller.
const maxUpdateBytes = 1 << 20

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
	Broadcast(ctx context.Context, text string) (int, int, error)
}

type UserAdmin interface {
	Get(ctx context.Context, userID int64) (*models.User, error)
	SetPaid(ctx context.Context, userID int64, paid bool) error
}

type Server struct {
	addr         string
	username     string
	password     string
	writeTimeout time.Duration
	log          *slog.Logger
	bot          UpdateHandler
	users        UserAdmin
	router       *chi.Mux
}

func NewServer(cfg config.Config, log *slog.Logger, bot UpdateHandler, users UserAdmin, metrics http.Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:         cfg.ListenAddr,
		username:     cfg.AdminUsername,
		password:     cfg.AdminPassword,
		writeTimeout: cfg.WriteTimeout,
		log:          log,
		bot:          bot,
		users:        users,
		router:       r,
	}
	r.Get("/", s.handleHealth)
	r.Post("/", s.handleWebhook)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	if cfg.AdminEnabled() {
		r.Route("/admin", func(protected chi.Router) {
			protected.Use(s.basicAuthMiddleware())
			protected.Post("/broadcast", s.handleBroadcast)
			protected.Get("/users/{id}", s.handleGetUser)
			protected.Post("/users/{id}/paid", s.handleSetPaid)
		})
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	writeTimeout := s.writeTimeout
	if writeTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "Twin is LIVE!"})
}

// handleWebhook always answers 200 so Telegram never redelivers an update,
// even when decoding or processing fails.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		s.log.Warn("undecodable webhook update", "err", err, "request_id", middleware.GetReqID(r.Context()))
		w.WriteHeader(http.StatusOK)
		return
	}

	// The turn runs to completion even if Telegram drops the connection.
	s.bot.HandleUpdate(context.WithoutCancel(r.Context()), update)
	w.WriteHeader(http.StatusOK)
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	sent, total, err := s.bot.Broadcast(r.Context(), req.Message)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sent":  sent,
		"total": total,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

type setPaidRequest struct {
	Paid *bool `json:"paid"`
}

// handleSetPaid is the hook for whatever activates a subscription; it only
// flips the flag and never touches the usage counter.
func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req setPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Paid == nil {
		http.Error(w, "paid required", http.StatusBadRequest)
		return
	}
	if err := s.users.SetPaid(r.Context(), id, *req.Paid); err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Info("paid flag updated", "user_id", id, "paid", *req.Paid)
	s.writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "paid": *req.Paid})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(s.username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="twin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

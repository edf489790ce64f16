// Package discserv provides a way to run an http server
// with logging and other necessary things
package discserv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tawnybot/tawnybot/internal/core/models"
)

type Config struct {
	Port int
}

// LevelReader reads guild level configs
type LevelReader interface {
	GetOrCreate(ctx context.Context, guildID string) (models.GuildLevelConfig, error)
}

type Server struct {
	*http.Server

	levels LevelReader
	l      *zap.SugaredLogger
}

func New(l *zap.SugaredLogger, c Config, levels LevelReader, gatherer prometheus.Gatherer) *Server {
	r := mux.NewRouter()

	s := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", c.Port),
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		levels: levels,
		l:      l,
	}

	r.HandleFunc("/healthz", handleHealthCheck()).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/guilds/{guildID}/levels", s.handleGetLevels()).Methods(http.MethodGet)

	r.Use(loggingMiddleware(l))

	return s
}

func loggingMiddleware(l *zap.SugaredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.RequestURI == "/healthz" || r.RequestURI == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			l.Infow("request received", "uri", r.RequestURI, "method", r.Method)

			next.ServeHTTP(w, r)
		})
	}
}

type levelResponse struct {
	Level    int    `json:"level"`
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
	Target   int64  `json:"target"`
}

type levelsResponse struct {
	GuildID string          `json:"guild_id"`
	Name    string          `json:"name"`
	Levels  []levelResponse `json:"levels"`
}

func (s *Server) handleGetLevels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID := mux.Vars(r)["guildID"]

		cfg, err := s.levels.GetOrCreate(r.Context(), guildID)
		if errors.Is(err, models.ErrLookup) {
			http.Error(w, fmt.Sprintf("guild %s not found", guildID), http.StatusNotFound)
			return
		}
		if err != nil {
			s.l.Errorw("error getting levels", "guild_id", guildID, "err", err)
			http.Error(w, "error getting levels", http.StatusInternalServerError)
			return
		}

		resp := levelsResponse{
			GuildID: cfg.GuildID,
			Name:    cfg.DisplayName,
			Levels:  make([]levelResponse, 0, len(cfg.Levels)),
		}
		for _, l := range cfg.Levels.Sorted() {
			def := cfg.Levels[l]
			resp.Levels = append(resp.Levels, levelResponse{
				Level:    l,
				RoleID:   def.RoleID,
				RoleName: def.RoleName,
				Target:   def.Target,
			})
		}

		w.Header().Add("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.l.Errorw("error writing levels", "err", err)
		}
	}
}

func handleHealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {}
}

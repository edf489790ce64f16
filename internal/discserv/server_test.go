package discserv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tawnybot/tawnybot/internal/core/models"
	"github.com/tawnybot/tawnybot/internal/metrics"
)

type fakeLevels map[string]models.GuildLevelConfig

func (f fakeLevels) GetOrCreate(_ context.Context, guildID string) (models.GuildLevelConfig, error) {
	cfg, ok := f[guildID]
	if !ok {
		return models.GuildLevelConfig{}, fmt.Errorf("guild %s: %w", guildID, models.ErrLookup)
	}
	return cfg, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.MessagesRecorded.Add(3)

	levels := fakeLevels{
		"guild-1": {
			GuildID:     "guild-1",
			DisplayName: "Owls",
			Levels: models.Levels{
				3: {RoleID: "r-gold", Target: 20, RoleName: "Gold"},
				1: {RoleID: "r-tin", Target: 1, RoleName: "Tin"},
			},
		},
	}

	return New(zap.NewNop().Sugar(), Config{Port: 0}, levels, reg)
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestServer(t), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetLevels(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, http.MethodGet, "/guilds/guild-1/levels")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"guild_id": "guild-1",
		"name": "Owls",
		"levels": [
			{"level": 1, "role_id": "r-tin", "role_name": "Tin", "target": 1},
			{"level": 3, "role_id": "r-gold", "role_name": "Gold", "target": 20}
		]
	}`, rec.Body.String())

	rec = serve(s, http.MethodGet, "/guilds/guild-missing/levels")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, http.MethodPost, "/guilds/guild-1/levels")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetrics(t *testing.T) {
	rec := serve(newTestServer(t), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tawnybot_messages_recorded_total 3")
}

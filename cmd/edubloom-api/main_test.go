package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/storage/memory"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestSetupLogger_Levels(t *testing.T) {
	ctx := context.Background()

	require.True(t, setupLogger(envLocal).Enabled(ctx, slog.LevelDebug))
	require.True(t, setupLogger(envDev).Enabled(ctx, slog.LevelDebug))
	require.False(t, setupLogger(envProd).Enabled(ctx, slog.LevelDebug))
	require.True(t, setupLogger(envProd).Enabled(ctx, slog.LevelInfo))
	require.True(t, setupLogger("unknown").Enabled(ctx, slog.LevelDebug))
}

func TestProbes(t *testing.T) {
	var ready atomic.Bool
	dep := &fakePinger{}

	r := chi.NewRouter()
	mountProbes(r, &ready, dep)

	get := func(path string) int {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr.Code
	}

	require.Equal(t, http.StatusOK, get("/livez"))
	require.Equal(t, http.StatusServiceUnavailable, get("/healthz"))

	ready.Store(true)
	require.Equal(t, http.StatusOK, get("/healthz"))

	dep.err = errors.New("db down")
	require.Equal(t, http.StatusServiceUnavailable, get("/healthz"))

	require.Equal(t, http.StatusOK, get("/metrics"))
}

func TestSweepExpiredSessions(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	u := &models.User{ID: uuid.New(), Name: "J", Email: "j@x.com", PasswordHash: "h", Role: models.RoleStudent, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.SaveUser(ctx, u))

	expired := &models.Session{ID: uuid.New(), UserID: u.ID, TokenHash: "a", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	live := &models.Session{ID: uuid.New(), UserID: u.ID, TokenHash: "b", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, st.CreateSession(ctx, expired))
	require.NoError(t, st.CreateSession(ctx, live))

	sweepExpiredSessions(ctx, st, slog.New(slog.NewTextHandler(io.Discard, nil)), now)

	_, err := st.SessionByID(ctx, expired.ID)
	require.Error(t, err)
	_, err = st.SessionByID(ctx, live.ID)
	require.NoError(t, err)
}

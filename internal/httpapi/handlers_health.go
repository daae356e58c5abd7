package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports liveness plus the state of the two backing
// stores. Redis going down degrades caching and rate limiting but the
// API keeps serving, so the overall status stays "ok" unless Postgres
// is unreachable.
type HealthHandler struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Status string `json:"status"`
		DB     string `json:"db"`
		Redis  string `json:"redis"`
		Time   string `json:"time"`
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "ok"
	if err := h.DB.Ping(ctx); err != nil {
		dbStatus = "down"
		status = "down"
	}

	redisStatus := "ok"
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}
	} else {
		redisStatus = "disabled"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp{
		Status: status,
		DB:     dbStatus,
		Redis:  redisStatus,
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

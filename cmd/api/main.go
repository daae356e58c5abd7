package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snipvault/snipvault/internal"
	"github.com/snipvault/snipvault/internal/apikeys"
	"github.com/snipvault/snipvault/internal/cache"
	"github.com/snipvault/snipvault/internal/cloud"
	"github.com/snipvault/snipvault/internal/db"
	"github.com/snipvault/snipvault/internal/httpapi"
	"github.com/snipvault/snipvault/internal/ratelimit"
	"github.com/snipvault/snipvault/internal/snippets"
	"github.com/snipvault/snipvault/internal/telemetry"
)

func main() {
	port := internal.Env("APP_PORT", "8080")
	databaseURL := internal.MustEnv("DATABASE_URL")
	redisURL := internal.MustEnv("REDIS_URL")
	siteHost := internal.MustEnv("SITE_HOST")

	ctx := context.Background()

	shutdownTracer := telemetry.InitTracer("snipvault-api")
	defer shutdownTracer(context.Background())
	shutdownMetrics := telemetry.InitMetrics("snipvault-api")
	defer shutdownMetrics(context.Background())
	shutdownLogger := telemetry.InitLogger("snipvault-api")
	defer shutdownLogger(context.Background())
	db.InitTelemetry("snipvault-api")

	d, err := db.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, databaseURL); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	redisOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	redisClient := redis.NewClient(redisOpt)
	defer redisClient.Close()

	dbBase := db.NewBase(d.Pool, 3*time.Second)
	cacheStore := cache.NewRedisStore(redisClient, "snipvault:cache:")

	snippetsRepo := snippets.NewRepository(dbBase)
	snippetsService := &snippets.Service{
		Store:    snippetsRepo,
		Cache:    cacheStore,
		CacheTTL: parseDurationEnv("SNIPPETS_CACHE_TTL", 2*time.Minute),
	}

	cloudService := cloud.NewService(
		snippetsRepo,
		cloud.NewPGSettingsStore(dbBase),
		cacheStore,
		cloud.Config{
			SiteHost:    siteHost,
			APIURL:      internal.Env("CLOUD_API_URL", ""),
			WebURL:      internal.Env("CLOUD_WEB_URL", ""),
			CallbackURL: internal.Env("CLOUD_CALLBACK_URL", ""),
		},
	)

	keysService := &apikeys.Service{Store: apikeys.NewRepository(dbBase)}

	limiter := &ratelimit.Limiter{
		Client: redisClient,
		Prefix: "snipvault:ratelimit:",
		Limit:  parseIntEnv("CLOUD_RATE_LIMIT", 30),
		Window: parseDurationEnv("CLOUD_RATE_WINDOW", time.Minute),
	}

	app := &httpapi.App{
		Health:   &httpapi.HealthHandler{DB: d.Pool, Redis: redisClient},
		Snippets: &httpapi.SnippetsHandler{Service: snippetsService},
		Cloud:    &httpapi.CloudHandler{Service: cloudService},
		APIKeys:  &httpapi.APIKeysHandler{Service: keysService},
		Auth:     keysService,
		Limiter:  limiter,
		LocalToken: func(ctx context.Context) string {
			return cloudService.LocalToken(ctx)
		},
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(internal.Env(key, ""))
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("invalid %s: %q, using default", key, val)
		return def
	}
	return d
}

func parseIntEnv(key string, def int) int {
	val := strings.TrimSpace(internal.Env(key, ""))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid %s: %q, using default", key, val)
		return def
	}
	return n
}

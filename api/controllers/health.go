package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/miniapp-storefront/api/responses"
	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
)

const envHeader = "X-Storefront-Env"

// Pinger is a dependency checked by readiness.
type Pinger interface {
	Ping(context.Context) error
}

// SnapshotSource exposes the shared catalog snapshot.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once a catalog snapshot has been installed and redis,
// when configured, answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, catalogStore SnapshotSource, redisClient Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		snap := catalogStore.Current()
		if snap.Version() == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "catalog not loaded"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"status":          "ready",
			"catalog_version": snap.Version(),
		})
	}
}

package controllers

import (
	"context"
	"net/http"

	"github.com/omarsiddique/cryptocart-backend/api/responses"
	"github.com/omarsiddique/cryptocart-backend/pkg/config"
	pkgerrors "github.com/omarsiddique/cryptocart-backend/pkg/errors"
	"github.com/omarsiddique/cryptocart-backend/pkg/logger"
)

// ReadinessProbe is satisfied by the db and redis clients.
type ReadinessProbe interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CryptoCart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...ReadinessProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-CryptoCart-Env", cfg.App.Env)

		for _, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "readiness probe"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

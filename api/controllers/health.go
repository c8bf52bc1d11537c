package controllers

import (
	"net/http"

	"github.com/Rhaonthemoon/radio-bug/api/responses"
	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
)

const envHeader = "X-RadioBug-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency and reports per-component status.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...namedPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		components := map[string]string{}
		healthy := true
		for _, dep := range deps {
			if dep.pinger == nil {
				components[dep.name] = "not configured"
				continue
			}
			if err := dep.pinger.Ping(r.Context()); err != nil {
				components[dep.name] = err.Error()
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed: "+dep.name, err)
				}
				continue
			}
			components[dep.name] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), nil, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(components))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "components": components})
	}
}

type namedPinger struct {
	name   string
	pinger storage.Pinger
}

// Dep pairs a dependency name with its ping surface for readiness checks.
func Dep(name string, pinger storage.Pinger) namedPinger {
	return namedPinger{name: name, pinger: pinger}
}

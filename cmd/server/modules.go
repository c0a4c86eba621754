package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/appart/internal/api"
	"github.com/JaimeStill/appart/internal/config"
	"github.com/JaimeStill/appart/internal/infrastructure"
	"github.com/JaimeStill/appart/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

type probeStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func buildRouter(infra *infrastructure.Infrastructure, version string) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, probeStatus{Status: "ok", Version: version})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			writeProbe(w, http.StatusServiceUnavailable, probeStatus{Status: "not ready"})
			return
		}
		writeProbe(w, http.StatusOK, probeStatus{Status: "ready", Version: version})
	})

	return router
}

func writeProbe(w http.ResponseWriter, code int, status probeStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

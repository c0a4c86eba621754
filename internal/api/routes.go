package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/appart/internal/config"
	"github.com/JaimeStill/appart/pkg/openapi"
	"github.com/JaimeStill/appart/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	batchHandler := domain.Batches.Handler()

	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		batchHandler.Routes(),
		batchHandler.AnalyzeRoutes(),
		domain.Prompts.Handler().Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	)

	spec, err := openapi.MarshalJSON(buildSpec(cfg))
	if err != nil {
		return fmt.Errorf("openapi spec: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))

	return nil
}

package api

import (
	"net/http"

	"github.com/finchhealth/denialwatch/internal/config"
	"github.com/finchhealth/denialwatch/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	sheetHandler := domain.Sheets.
		Handler(cfg.API.MaxUploadSizeBytes()).
		WithIngestor(domain.Monitor)

	groups := []routes.Group{
		sheetHandler.Routes(),
		domain.Records.Handler().Routes(),
		domain.Analyzer.Handler().Routes(),
		domain.Notify.Handler().Routes(),
		domain.Monitor.Handler().Routes(),
		newAuditHandler(domain.Audit, runtime.Logger).routes(),
		newArtifactHandler(runtime.Storage, runtime.Logger).routes(),
	}
	groups = append(groups, domain.Tracker.Handler().Routes()...)

	routes.Register(mux, groups...)
}

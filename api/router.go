package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/api/handlers"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/metrics"
	"github.com/meghashyamc/bioagents/services/diagnostics"
	"github.com/meghashyamc/bioagents/services/labels"
	"github.com/meghashyamc/bioagents/services/leads"
	"github.com/meghashyamc/bioagents/services/ocr"
	"github.com/meghashyamc/bioagents/services/roleplay"
	"github.com/meghashyamc/bioagents/services/search"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *server) setupRoutes(router *gin.Engine) {
	router.GET("/health", health())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	catalog, err := roleplay.LoadCatalog()
	if err != nil {
		// the catalog is embedded, so this only fails on a broken build
		panic(err)
	}

	leadsService := leads.New(s.logger, leads.NewStoreSender(s.logger, s.store), s.store)
	searchService := search.New(s.logger, s.searcher)
	ocrService := ocr.New(s.logger, &http.Client{Timeout: 60 * time.Second}, s.resolver, ocr.Settings{
		Processor: s.cfg.GetDocumentAIProcessor(),
		Location:  s.cfg.GetDocumentAILocation(),
	})
	servingConfig := s.cfg.GetSearchServingConfig()

	handlers.SetupLeads(router, s.logger, leadsService, s.validator)
	handlers.SetupLabels(router, s.logger, labels.New(s.logger, s.generator), s.validator)
	handlers.SetupDocuments(router, s.logger, ocrService, s.validator)
	handlers.SetupRoleplay(router, s.logger, roleplay.New(s.logger, s.generator, s.store, catalog, s.cfg.GetRoleplayModel()))
	handlers.SetupSearch(router, s.logger, searchService, servingConfig, s.validator)
	handlers.SetupDiagnostics(router, diagnostics.New(s.logger,
		diagnostics.CredentialsCheck(s.resolver),
		diagnostics.ModelCheck(s.generator),
		diagnostics.StoreCheck(s.store),
		diagnostics.SearchCheck(searchService, servingConfig),
	))

	var indexer handlers.Indexer
	if s.localIndex != nil {
		indexer = s.localIndex
	}
	handlers.SetupAdmin(router, s.logger, leadsService, indexer, s.cfg.GetAdminEmails(), s.validator)
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func newRouter(logger logger.Logger) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.HandleMethodNotAllowed = true
	router.NoRoute(handlers.NotFound())
	router.NoMethod(handlers.MethodNotAllowed())
	router.Use(_CORSMiddleware())
	router.Use(recoveryMiddleware(logger))
	router.Use(loggingMiddleware(logger))
	router.Use(metrics.Middleware())

	return router
}

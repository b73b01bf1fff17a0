package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/config"
	"github.com/meghashyamc/bioagents/db/searchdb"
	"github.com/meghashyamc/bioagents/db/store"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/credentials"
	"github.com/meghashyamc/bioagents/services/index"
	"github.com/meghashyamc/bioagents/services/llm"
	"github.com/meghashyamc/bioagents/services/search"
	"github.com/meghashyamc/bioagents/validation"
)

const (
	storeBackendBolt      = "bolt"
	storeBackendFirestore = "firestore"
	storeBackendMemory    = "memory"

	searchBackendLocal = "local"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type server struct {
	cfg        *config.Config
	router     *gin.Engine
	httpServer *http.Server
	logger     logger.Logger

	resolver   *credentials.Resolver
	store      store.DB
	searchDB   searchdb.DB
	searcher   search.Searcher
	localIndex *search.LocalIndex
	generator  llm.Generator
	validator  *validation.Validator
}

func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := &server{
		cfg:    cfg,
		logger: logger.NewWithLevel(cfg.GetLogLevel()),
	}
	if err := s.setupDependencies(ctx); err != nil {
		s.closeDependencies()
		return err
	}
	s.setupRouter()
	s.seedSearchIndex(ctx)

	errC := s.setupHTTPServer()
	return s.setupGracefulShutdown(ctx, errC)
}

func (s *server) setupDependencies(ctx context.Context) error {
	var err error

	s.resolver = credentials.New(s.logger, credentials.Settings{
		ServiceAccountJSON: s.cfg.GetServiceAccountJSON(),
		ClientEmail:        s.cfg.GetClientEmail(),
		PrivateKey:         s.cfg.GetPrivateKey(),
		CredentialsFile:    s.cfg.GetCredentialsFile(),
		ProjectID:          s.cfg.GetCloudProjectID(),
	})

	if s.store, err = s.newStore(ctx); err != nil {
		s.logger.Error("error creating document store", "backend", s.cfg.GetStoreBackend(), "err", err.Error())
		return err
	}

	if err = s.newSearcher(); err != nil {
		s.logger.Error("error creating search backend", "backend", s.cfg.GetSearchBackend(), "err", err.Error())
		return err
	}

	if s.generator, err = s.newGenerator(ctx); err != nil {
		s.logger.Error("error creating model client", "provider", s.cfg.GetModelProvider(), "err", err.Error())
		return err
	}

	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	return nil
}

func (s *server) newStore(ctx context.Context) (store.DB, error) {
	switch backend := s.cfg.GetStoreBackend(); backend {
	case storeBackendBolt:
		return store.NewBolt(s.logger, s.cfg.GetBoltPath())
	case storeBackendFirestore:
		tokenSource, err := s.resolver.TokenSource(ctx, credentials.ScopeCloudPlatform)
		if err != nil {
			return nil, err
		}
		return store.NewFirestore(ctx, s.logger, s.resolver.ResolveProjectID(), tokenSource)
	case storeBackendMemory:
		s.logger.Warn("using in-memory document store, nothing will be persisted")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func (s *server) newSearcher() error {
	if s.cfg.GetSearchBackend() != searchBackendLocal {
		httpClient := &http.Client{Timeout: 30 * time.Second}
		s.searcher = search.NewDiscoveryClient(s.logger, httpClient, s.cfg.GetSearchEndpoint(), s.resolver)
		return nil
	}

	indexPath := s.cfg.GetIndexPath()
	if !filepath.IsAbs(indexPath) {
		indexPath = filepath.Join(s.cfg.GetStoragePath(), indexPath)
	}
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return fmt.Errorf("failed to create search index directory: %w", err)
	}

	searchDB, err := searchdb.New(s.logger, indexPath)
	if err != nil {
		return err
	}
	s.searchDB = searchDB
	s.localIndex = search.NewLocalIndex(searchDB)
	s.searcher = s.localIndex

	return nil
}

func (s *server) newGenerator(ctx context.Context) (llm.Generator, error) {
	switch provider := s.cfg.GetModelProvider(); provider {
	case llm.ProviderOpenAI:
		return llm.NewOpenAI(s.logger, llm.OpenAIConfig{
			APIKey:  s.cfg.GetOpenAIAPIKey(),
			BaseURL: s.cfg.GetOpenAIBaseURL(),
			Model:   s.cfg.GetOpenAIModel(),
		}), nil
	case llm.ProviderGemini:
		return llm.NewGemini(ctx, s.logger, llm.GeminiConfig{
			APIKey:      s.cfg.GetGeminiAPIKey(),
			Model:       s.cfg.GetGeminiModel(),
			VisionModel: s.cfg.GetGeminiVisionModel(),
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}

// seedSearchIndex indexes site content into the local backend in the background.
func (s *server) seedSearchIndex(ctx context.Context) {
	seedDir := s.cfg.GetSearchSeedDir()
	if s.localIndex == nil || seedDir == "" {
		return
	}
	if _, err := os.Stat(seedDir); err != nil {
		s.logger.Warn("search seed directory not available", "dir", seedDir, "err", err.Error())
		return
	}

	service := index.New(s.logger, s.localIndex, s.store)
	go func() {
		if _, err := service.Build(ctx, seedDir); err != nil {
			s.logger.Error("could not seed search index", "dir", seedDir, "err", err.Error())
		}
	}()
}

func (s *server) setupRouter() {
	router := newRouter(s.logger)

	s.setupRoutes(router)

	s.router = router
}

func (s *server) setupHTTPServer() <-chan error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errC := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr, "env", s.cfg.GetEnv())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()
	return errC
}

func (s *server) setupGracefulShutdown(ctx context.Context, errC <-chan error) error {
	var serveErr error
	select {
	case serveErr = <-errC:
		if serveErr != nil {
			s.logger.Error("http server stopped", "err", serveErr.Error())
		}
	case <-ctx.Done():
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("starting to shut down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down http server", "err", err.Error())
			return
		}
		s.logger.Info("shut down http server successfully")
	}()
	wg.Wait()

	s.closeDependencies()
	return serveErr
}

func (s *server) closeDependencies() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("error closing document store", "err", err.Error())
		}
	}
	if s.searchDB != nil {
		if err := s.searchDB.Close(); err != nil {
			s.logger.Error("error closing search index", "err", err.Error())
		}
	}
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/api/middleware"
	"github.com/glintlabs/glint/internal/engine"
	"github.com/glintlabs/glint/internal/engine/dwell"
	"github.com/glintlabs/glint/internal/engine/fusion"
	"github.com/glintlabs/glint/internal/extract"
	"github.com/glintlabs/glint/internal/infrastructure/config"
	"github.com/glintlabs/glint/internal/infrastructure/monitoring"
	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/orchestrate"
	"github.com/glintlabs/glint/internal/relay"
	"github.com/glintlabs/glint/internal/search"
	"github.com/glintlabs/glint/internal/session"
	"github.com/glintlabs/glint/internal/snapshot"
	"github.com/glintlabs/glint/internal/telemetry"
	"github.com/glintlabs/glint/internal/ws"
)

// Server wires the session socket, the gaze relay, and the HTTP surface.
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	log      *logging.Logger
	metrics  *monitoring.Metrics
	relay    *relay.Service
	sessions *session.Manager

	search *search.Client

	httpSrv     *http.Server
	relayCancel context.CancelFunc
	startTime   time.Time
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(cfg.LoggingSettings())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	logger.Info("initializing glint server",
		zap.String("port", cfg.Server.Port),
		zap.String("capture_url", cfg.Orchestrate.CaptureURL),
		zap.String("gaze_url", cfg.Relay.URL),
	)

	metrics := monitoring.NewMetrics()

	relaySvc := relay.New(cfg.RelaySettings(), logger)
	relaySvc.OnStateChange = func(up bool) {
		metrics.SetRelayConnected(up)
		if up {
			logger.Info("gaze channel restored")
		} else {
			logger.Warn("gaze channel degraded to polling")
		}
	}

	relaySvc.OnFrame = metrics.RecordRelayFrame

	sessions := session.NewManager(session.NewFileStore(cfg.Session.StoreDir), relaySvc, logger)
	sessions.SetObserver(metrics)

	searchClient := search.NewClient(cfg.SearchSettings(), logger)
	searchClient.SetCacheObserver(metrics.RecordCacheLookup)
	chainClient := orchestrate.NewClient(cfg.OrchestrateSettings(), logger)
	notebook := orchestrate.NewNotebookClient(cfg.Orchestrate.NotebookURL, cfg.Orchestrate.NotebookTimeout, logger)
	orchestrator := orchestrate.NewOrchestrator(chainClient, searchClient, notebook, logger)
	orchestrator.SetObserver(metrics)

	rules, err := extract.RulesFromFile(cfg.Extract.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load extraction rules: %w", err)
	}

	snapshots := snapshot.NewPipeline(cfg.SnapshotSettings())
	recorder := telemetry.NewRecorder(prometheus.DefaultRegisterer)
	engineCfg := cfg.EngineSettings()

	factory := func(s *session.Session, em engine.Emitter) *engine.Engine {
		return engine.New(engineCfg, engine.Deps{
			Session:      s,
			Tracker:      fusion.NewTracker(fusion.DefaultConfig()),
			Detector:     dwell.NewDetector(dwell.DefaultConfig()),
			Dispatcher:   extract.NewDispatcher(extract.DefaultConfig(), rules, logger),
			Snapshots:    snapshots,
			Orchestrator: orchestrator,
			Emitter:      em,
			Telemetry:    recorder,
			Log:          logger,
		})
	}
	wsHandler := ws.NewHandler(sessions, factory, logger)
	wsHandler.SetMessageObserver(metrics.RecordWSMessage)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	srv := &Server{
		cfg:       cfg,
		router:    router,
		log:       logger,
		metrics:   metrics,
		relay:     relaySvc,
		sessions:  sessions,
		search:    searchClient,
		startTime: time.Now(),
	}

	router.GET("/ws", func(c *gin.Context) {
		metrics.IncWSConnections()
		defer metrics.DecWSConnections()
		wsHandler.HandleConnection(c)
	})
	router.GET("/health", srv.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("server initialized")
	return srv, nil
}

// Run starts the relay and serves HTTP until Shutdown.
func (s *Server) Run() error {
	relayCtx, cancel := context.WithCancel(context.Background())
	s.relayCancel = cancel
	if s.cfg.Relay.URL != "" {
		go s.relay.Run(relayCtx)
	} else {
		s.log.Info("no gaze source configured, relay disabled")
	}

	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("starting HTTP server", zap.String("addr", addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the relay and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down")
	if s.relayCancel != nil {
		s.relayCancel()
	}

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	s.log.Sync()
	return err
}

func (s *Server) health(c *gin.Context) {
	snap := s.metrics.CurrentSnapshot()
	stats := s.sessions.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"uptime_seconds":  int64(time.Since(s.startTime).Seconds()),
		"active_sessions": stats.ActiveSessions,
		"total_requests":  snap.TotalRequests,
		"total_errors":    snap.TotalErrors,
		"total_resolves":  snap.TotalResolves,
		"search_cache":    s.search.CacheLen(),
		"relay_connected": s.relay.Connected(),
	})
}

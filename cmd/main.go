package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"kata_review/internal/adapters"
	"kata_review/internal/app"
	"kata_review/internal/bootstrap"
	analysisDelivery "kata_review/internal/delivery/analysis"
	"kata_review/internal/health"
	"kata_review/internal/logger"
	ownMiddleware "kata_review/internal/middleware"
	"kata_review/internal/repository"
	analysisUC "kata_review/internal/usecase/analysis"
	"kata_review/internal/usecase/katago"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file (toml, yaml, json or .env)")
	flag.Parse()

	cfg, err := bootstrap.Setup(*cfgPath)
	if err != nil {
		NewLogger().Errorw("Failed to setup configuration", "error", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		NewLogger().Errorw("Failed to setup logger", "error", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, log)

	stores := initStores(ctx, log, cfg)
	defer stores.Close(context.Background())

	healthServer := health.NewServer(log)
	go func() {
		if err := healthServer.Serve(cfg.Server.GrpcPort); err != nil {
			log.Errorw("grpc health server stopped", "error", err)
		}
	}()
	defer healthServer.Shutdown()

	codec := katago.NewCodec(katago.NewInterpreter(cfg.Analysis.ReportAs, cfg.Analysis.TolerateIncomplete, log))
	engine := repository.NewSupervisor(adapters.KatagoLauncher(cfg.Katago, log), codec, cfg.Katago.Timeout, log)
	engine.OnStateChange(healthServer.Observe)
	defer func() {
		if err := engine.Close(context.Background()); err != nil {
			log.Errorw("failed to stop engine", "error", err)
		}
	}()

	analyzer := analysisUC.NewAnalyzer(*cfg, engine, log)
	stores.Wire(analyzer)

	r := chi.NewRouter()
	if cfg.Server.IsLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	analysisDelivery.NewAnalysisHandler(analyzer, log).Router(r)

	srv := &http.Server{Addr: cfg.Server.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Server is running on port %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("Failed to start server", "error", err)
	}
}

// NewLogger is used until the configured logger exists.
func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func initStores(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) *app.Stores {
	stores := &app.Stores{}
	if err := stores.OpenArchive(ctx, cfg, log); err != nil {
		log.Fatalw("Не удалось открыть хранилище анализов", "driver", cfg.Store.Driver, "error", err)
	}
	stores.OpenCache(ctx, cfg, log)

	log.Infow("Адаптеры хранилищ инициализированы", "store", cfg.Store.Driver, "cache", stores.HasCache())
	return stores
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
}

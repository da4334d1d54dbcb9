package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"opsdash/internal/api"
	"opsdash/internal/cache"
	"opsdash/internal/config"
	"opsdash/internal/engine"
	"opsdash/internal/observability"
	"opsdash/internal/service"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	cfgFile  string
	dataPath string
	logLevel string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "opsdash",
	Short: "Serve the maintenance dashboard API",
	Long: `opsdash loads a maintenance records export and serves filterable
metrics and chart datasets over HTTP.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "config.yaml", "config file")
	rootCmd.Flags().StringVar(&dataPath, "data", "", "records CSV (overrides dataset.path)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (overrides logging)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	// 1. Configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dataPath != "" {
		cfg.Dataset.Path = dataPath
	}
	if logLevel != "" {
		cfg.Logging = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.Logging)
	if err != nil {
		return err
	}
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.MetricsAddr != "" {
		observability.StartMetricsServer(cfg.MetricsAddr, log)
	}

	// 2. Echo starts before the data is ready; data routes answer 503 until then
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))

	h := api.NewHandler(nil, log)
	h.RegisterRoutes(e)

	var dashCache cache.Cache
	if cfg.Cache.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.Address})
		defer client.Close()
		dashCache = cache.NewRedis(client, cfg.Cache.Prefix, cfg.Cache.TTL)
		log.WithField("address", cfg.Cache.Address).Info("Dashboard cache enabled")
	}

	// 3. Load in the background
	go func() {
		svc, err := loadService(cfg, dashCache, log)
		if err != nil {
			observability.RecordError("loader", "load")
			log.WithError(err).Fatal("Failed to load dataset")
		}
		h.SetService(svc)
	}()

	// 4. Serve until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("Server ready (data loading in background)")
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func loadService(cfg *config.Config, c cache.Cache, log *logrus.Logger) (*service.Service, error) {
	t0 := time.Now()

	ds, err := engine.LoadCSV(cfg.Dataset.Path, cfg.LoadOptions(), log)
	if err != nil {
		return nil, err
	}
	observability.DatasetRows.Set(float64(ds.Len()))

	reg, err := engine.NewRegistry(cfg.Filters...)
	if err != nil {
		return nil, err
	}

	p := engine.NewPipeline(ds, reg, cfg.Dataset.Columns,
		engine.WithTopN(cfg.TopN),
		engine.WithLogger(log),
	)

	log.WithFields(logrus.Fields{
		"rows":     ds.Len(),
		"duration": time.Since(t0),
	}).Info("Dataset ready")

	return service.New(p, c, log), nil
}

func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			}).Debug("Request")
			return nil
		},
	})
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stylerd/internal/cache"
	"stylerd/internal/config"
	"stylerd/internal/daemon"
	"stylerd/internal/httpapi"
	"stylerd/internal/jobs"
	"stylerd/internal/pipeline"
	"stylerd/internal/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "stylerd",
		Short:         "Image generation daemon with a byte-budgeted resource cache",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	f.String("addr", "", "HTTP listen address, e.g. :8080")
	f.String("models-dir", "", "Directory to scan for base model weights")
	f.String("loras-dir", "", "Directory to scan for style adapter weights")
	f.String("output-dir", "", "Directory for generated artifacts")
	f.Int("device-budget-mb", 0, "Device memory budget in MB (0=unbudgeted)")
	f.Int("host-budget-mb", 0, "Host memory budget in MB (0=unbudgeted)")
	f.Float64("pressure-threshold", 0, "Pool utilization fraction that reports pressure")
	f.Int("wait-timeout-sec", 0, "Seconds to wait behind an in-flight load before returning busy (0=forever)")
	f.String("default-model", "", "Model id used when a job omits model_id")
	f.Int("max-queue-depth", 0, "Max pending jobs before submissions are rejected")
	f.Int("max-concurrent", 0, "Number of generation workers")
	f.String("log-level", "", "Log level: off|error|info|debug")
	f.String("cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")

	return root
}

// resolveConfig loads the optional config file, then applies flag and
// environment overrides. Flags win over the file, the file wins over env.
func resolveConfig(cmd *cobra.Command, cfgPath string) (config.Config, error) {
	var cfg config.Config
	if cfgPath == "" {
		cfgPath = os.Getenv("STYLERD_CONFIG")
	}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if v, _ := f.GetString("addr"); f.Changed("addr") {
		cfg.Addr = v
	}
	if v, _ := f.GetString("models-dir"); f.Changed("models-dir") {
		cfg.ModelsDir = v
	}
	if v, _ := f.GetString("loras-dir"); f.Changed("loras-dir") {
		cfg.LorasDir = v
	}
	if v, _ := f.GetString("output-dir"); f.Changed("output-dir") {
		cfg.OutputDir = v
	}
	if v, _ := f.GetInt("device-budget-mb"); f.Changed("device-budget-mb") {
		cfg.DeviceBudgetMB = v
	}
	if v, _ := f.GetInt("host-budget-mb"); f.Changed("host-budget-mb") {
		cfg.HostBudgetMB = v
	}
	if v, _ := f.GetFloat64("pressure-threshold"); f.Changed("pressure-threshold") {
		cfg.PressureThreshold = v
	}
	if v, _ := f.GetInt("wait-timeout-sec"); f.Changed("wait-timeout-sec") {
		cfg.WaitTimeoutSec = v
	}
	if v, _ := f.GetString("default-model"); f.Changed("default-model") {
		cfg.DefaultModel = v
	}
	if v, _ := f.GetInt("max-queue-depth"); f.Changed("max-queue-depth") {
		cfg.MaxQueueDepth = v
	}
	if v, _ := f.GetInt("max-concurrent"); f.Changed("max-concurrent") {
		cfg.MaxConcurrent = v
	}
	if v, _ := f.GetString("log-level"); f.Changed("log-level") {
		cfg.LogLevel = v
	}
	if v, _ := f.GetString("cors-origins"); f.Changed("cors-origins") {
		cfg.CORSEnabled = true
		cfg.CORSAllowedOrigins = splitCSV(v)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *config.Config) {
	if cfg.Addr == "" {
		if v := os.Getenv("STYLERD_ADDR"); v != "" {
			cfg.Addr = v
		} else {
			cfg.Addr = ":8080"
		}
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "~/models/sd"
	}
	if cfg.LorasDir == "" {
		cfg.LorasDir = "~/models/loras"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./outputs"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("STYLERD_LOG_LEVEL")
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newLogger(level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch level {
	case "off":
		lvl = zerolog.Disabled
	case "error":
		lvl = zerolog.ErrorLevel
	case "debug":
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// zerologPublisher forwards cache events to the structured logger.
type zerologPublisher struct {
	l zerolog.Logger
}

func (p zerologPublisher) Publish(ev cache.Event) {
	z := p.l.Debug().Str("event", ev.Name).Str("key", ev.Key)
	for k, v := range ev.Fields {
		z = z.Interface(k, v)
	}
	z.Msg("cache")
}

func run(cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)

	reg, err := registry.New(cfg.ModelsDir, cfg.LorasDir)
	if err != nil {
		logger.Error().Err(err).Msg("scan resource directories")
		return err
	}
	logger.Info().Int("resources", reg.Len()).Str("models_dir", cfg.ModelsDir).Str("loras_dir", cfg.LorasDir).Msg("registry loaded")

	// The stub runtime stands in wherever no accelerator backend is linked.
	rt := pipeline.NewStubRuntime(cfg.OutputDir)

	c := cache.New(cache.Config{
		MaxDeviceBytes:    int64(cfg.DeviceBudgetMB) << 20,
		MaxHostBytes:      int64(cfg.HostBudgetMB) << 20,
		PressureThreshold: cfg.PressureThreshold,
		WaitTimeout:       time.Duration(cfg.WaitTimeoutSec) * time.Second,
		Resolver:          reg,
		Loader:            pipeline.BaseLoader(rt),
		Publisher:         zerologPublisher{l: logger},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := jobs.New(jobs.Config{
		Registry:      reg,
		Cache:         c,
		Runtime:       rt,
		DefaultModel:  cfg.DefaultModel,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxConcurrent: cfg.MaxConcurrent,
		BaseCtx:       ctx,
	})

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
	httpapi.SetBaseContext(ctx)

	d := daemon.New(reg, c, svc)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(d)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("stylerd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown")
	}
	if err := svc.Close(); err != nil {
		logger.Warn().Err(err).Msg("job service shutdown")
	}
	if err := c.Clear(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("cache drain")
	}
	return nil
}

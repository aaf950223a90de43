package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"opcalcd/internal/catalog"
	"opcalcd/internal/config"
	"opcalcd/internal/engine"
	"opcalcd/internal/httpapi"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("OPCALCD_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	configPath := flag.String("config", "", "Optional config file (yaml/json/toml)")
	deviceID := flag.Int("device-id", 0, "Accelerator device id")
	machineType := flag.String("machine-type", "", "Accelerator machine type label")
	catalogPath := flag.String("catalog", "", "Optional operation catalog override file")
	sdkDir := flag.String("sdk-dir", "", "Accelerator SDK checkout for /api/git/info")
	resetTool := flag.String("reset-tool", "", "Vendor CLI used by /api/device/reset")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "opcalcd").Logger()

	var cfg config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
	}
	cfg = config.FromEnv(cfg)
	// Flags win over file and env for what they set explicitly.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["addr"] || cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if set["device-id"] {
		cfg.DeviceID = *deviceID
	}
	if set["machine-type"] {
		cfg.MachineType = *machineType
	}
	if set["catalog"] {
		cfg.CatalogPath = *catalogPath
	}
	if set["sdk-dir"] {
		cfg.SDKDir = *sdkDir
	}
	if set["reset-tool"] {
		cfg.ResetTool = *resetTool
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load catalog")
		}
		cat = loaded
	}

	eng := engine.New(engine.Config{
		Catalog:     cat,
		DeviceID:    cfg.DeviceID,
		MachineType: cfg.MachineType,
		SDKDir:      cfg.SDKDir,
		ResetTool:   cfg.ResetTool,
		Logger:      log,
	})
	if err := eng.VerifyDevice(context.Background()); err != nil {
		// Serve anyway; /readyz stays 503 until a reset brings it back.
		log.Error().Err(err).Msg("device verification failed")
	}

	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(eng)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Info().Str("addr", cfg.Addr).Int("device_id", cfg.DeviceID).Msg("opcalcd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	baseCancel() // abandon queued waiters
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}

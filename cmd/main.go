package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/Borislavv/refptr/internal/inspector"
	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/k8s/probe/liveness"
	"github.com/Borislavv/refptr/pkg/logger"
	"github.com/Borislavv/refptr/pkg/shutdown"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	configPath      = "refptr.cfg.yaml"
	configPathLocal = "refptr.cfg.local.yaml"
	configPathEnv   = "REFPTR_CONFIG"
)

// setMaxProcs automatically sets the optimal GOMAXPROCS value (CPU parallelism)
// based on the available CPUs and cgroup/docker CPU quotas (uses automaxprocs).
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// loadEnv loads .env files if present; real environment variables win.
func loadEnv() {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err == nil {
			log.Info().Msgf("[config] env loaded from '%v'", file)
		}
	}
}

// loadCfg loads the configuration from $REFPTR_CONFIG, the local or the default file.
func loadCfg() (*config.Config, error) {
	paths := []string{configPathLocal, configPath}
	if path := os.Getenv(configPathEnv); path != "" {
		paths = []string{path}
	}

	var lastErr error
	for _, path := range paths {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			lastErr = err
			continue
		}
		log.Info().Msgf("[config] config loaded from '%v'", path)
		return cfg, nil
	}
	log.Err(lastErr).Msg("[config] failed to load")
	return nil, lastErr
}

// Main entrypoint: configures and starts the inspector application.
func main() {
	// Create a root context for graceful shutdown and cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loadEnv()

	// Load the application configuration from file and env overrides.
	cfg, err := loadCfg()
	if err != nil {
		log.Err(err).Msg("[main] failed to load config")
		return
	}

	if err = logger.Setup(cfg.Logs); err != nil {
		log.Err(err).Msg("[main] failed to set up logger")
		return
	}

	// Optimize GOMAXPROCS for the current environment.
	setMaxProcs()

	// Setup graceful shutdown handler (SIGTERM, SIGINT, etc).
	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(time.Second * 30)

	// Initialize liveness probe for Kubernetes/Cloud health checks.
	probe := liveness.NewProbe(cfg.K8S.Probe.Timeout)
	defer probe.Close()

	app, err := inspector.NewApp(ctx, cfg, probe)
	if err != nil {
		log.Err(err).Msg("[main] failed to init inspector app")
		return
	}

	// Register app for graceful shutdown.
	gracefulShutdown.Add(1)
	go app.Start(gracefulShutdown)

	// Listen for OS signals or context cancellation and wait for graceful shutdown.
	if err = gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("[main] failed to gracefully shut down service")
	}
}

/*
Creep is a real-time viewer for the 3D models found in a directory.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/creep/engine"
	"github.com/spaghettifunk/creep/engine/config"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/viewer"
)

func loadConfig(path string, explicit bool) *config.Config {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg
	}
	if errors.Is(err, os.ErrNotExist) && !explicit {
		core.LogInfo("no %s found, using the default configuration", path)
		return config.Default()
	}
	core.LogFatal("failed to load configuration: %s", err)
	return nil
}

func main() {
	configPath := flag.String("config", config.DefaultFile, "path to the TOML configuration")
	backend := flag.String("backend", "", "override renderer.backend (vulkan or headless)")
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	cfg := loadConfig(*configPath, explicit)
	if *backend != "" {
		cfg.Renderer.Backend = *backend
		if err := cfg.Validate(); err != nil {
			core.LogFatal("%s", err)
		}
	}
	if err := core.SetLogLevel(cfg.LogLevel); err != nil {
		core.LogWarn("unknown log level %q: %s", cfg.LogLevel, err)
	}

	v := viewer.New(cfg)
	e, err := engine.New(v.ApplicationConfig(), v)
	if err != nil {
		core.LogFatal("%s", err)
	}
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("initialization failed: %s", err)
	}

	// capture sigterm and other system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		if errors.Is(runErr, core.ErrDeviceFatal) {
			core.LogFatal("graphics device failure: %s", runErr)
		}
		core.LogFatal("%s", runErr)
	}
}

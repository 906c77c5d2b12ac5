package main

import (
	"os"

	"go.uber.org/zap"

	spaceport "github.com/HansenHomeAI/v0-spaceport-website-sub000"
	_ "github.com/HansenHomeAI/v0-spaceport-website-sub000/api"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/config"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	_ "github.com/HansenHomeAI/v0-spaceport-website-sub000/service"
)

func main() {
	cfg, err := config.NewManager()
	logger := core.NewLogger(cfg)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, err := core.NewContext(cfg, logger)

	if err != nil {
		logger.Fatal("Failed to create context", zap.Error(err))
	}

	err = cfg.Init()
	if err != nil {
		logger.Fatal("Failed to initialize config", zap.Error(err))
	}

	logger.SetLevelFromConfig()

	spaceport.NewActivePortal(ctx)

	err = spaceport.Init()

	if err != nil {
		logger.Fatal("Failed to initialize portal", zap.Error(err))
		os.Exit(core.ExitCodeFailedStartup)
	}

	err = spaceport.Start()

	if err != nil {
		logger.Error("Failed to start portal", zap.Error(err))
		os.Exit(core.ExitCodeFailedStartup)
	}

	trapSignals()

	err = spaceport.Serve()
	if err != nil {
		logger.Error("Failed to serve portal", zap.Error(err))
		os.Exit(core.ExitCodeFailedStartup)
	}
}

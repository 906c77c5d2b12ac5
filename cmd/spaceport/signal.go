package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	spaceport "github.com/HansenHomeAI/v0-spaceport-website-sub000"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

// exitProcessFromSignal exits the process from a system signal.
func exitProcessFromSignal(sigName string) {
	ctx := spaceport.Context()
	logger := ctx.Logger().With(zap.String("signal", sigName))
	exitProcess(logger)
}

func exitProcess(logger *zap.Logger) {
	spaceport.Shutdown(spaceport.ActivePortal(), logger)
}

func trapSignals() {
	ctx := spaceport.Context()
	logger := ctx.Logger()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGUSR1, syscall.SIGUSR2)

		for sig := range sigchan {
			switch sig {
			case syscall.SIGQUIT:
				logger.Info("quitting process immediately", zap.String("signal", "SIGQUIT"))
				os.Exit(core.ExitCodeForceQuit)

			case syscall.SIGTERM:
				logger.Info("shutting down apps, then terminating", zap.String("signal", "SIGTERM"))
				exitProcessFromSignal("SIGTERM")

			case syscall.SIGHUP:
				// ignore; this signal is sometimes sent outside of the user's control
				logger.Info("not implemented", zap.String("signal", "SIGHUP"))
			}
		}

	}()
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/Tyrowin/roomchat/internal/server"
)

// parseConfigPath reads --config from args, falling back to $ROOMCHAT_CONFIG.
func parseConfigPath(args []string) (string, error) {
	fs := flag.NewFlagSet("roomchat", flag.ContinueOnError)
	path := fs.String("config", os.Getenv("ROOMCHAT_CONFIG"), "path to a YAML config file (default ./roomchat.yaml if present)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *path, nil
}

func main() {
	configPath, err := parseConfigPath(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := server.LoadConfig(configPath, slog.Default())
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("starting roomchat server")

	app := server.New(cfg, logger)
	app.Start(context.Background())

	httpServer := server.CreateServer(cfg.Port, app.Handler())
	go func() {
		if err := server.StartServer(httpServer, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.ShutdownServer(ctx, httpServer, logger)
			},
			"chat": func(ctx context.Context) error {
				return app.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("roomchat server exited", slog.Int("code", exitCode))
	os.Exit(exitCode)
}

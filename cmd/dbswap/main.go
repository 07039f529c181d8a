package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/semmidev/dbswap/internal/app"
	"github.com/semmidev/dbswap/internal/config"
	"github.com/semmidev/dbswap/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	authAddr := flag.String("auth", "", "run the Google Drive OAuth helper on this address instead of the daemon")
	clientSecret := flag.String("client-secret", "client_secret.json", "path to the OAuth client secret (with -auth)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *authAddr != "" {
		return runAuthHelper(ctx, *authAddr, *clientSecret)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return application.Run(ctx)
}

func runAuthHelper(ctx context.Context, addr, clientSecret string) error {
	lg, err := logger.New("info", "")
	if err != nil {
		return err
	}
	defer lg.Close()

	oauth, err := app.NewGoogleOAuthService(lg, clientSecret)
	if err != nil {
		return fmt.Errorf("initialize oauth helper: %w", err)
	}

	if err := oauth.StartAuthServer(ctx, addr); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return oauth.Shutdown(shutdownCtx)
}

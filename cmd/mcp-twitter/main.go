// Command mcp-twitter serves the Twitter/X tools over MCP stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	twitter "github.com/0xhijo/mcp-twitter"
	"github.com/0xhijo/mcp-twitter/auth"
	"github.com/0xhijo/mcp-twitter/captcha"
	"github.com/0xhijo/mcp-twitter/config"
	"github.com/0xhijo/mcp-twitter/mcpserver"
	"github.com/0xhijo/mcp-twitter/tools/tweets"
	"github.com/0xhijo/mcp-twitter/twitterapi"
)

const (
	serverName    = "twitter"
	serverVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.PathEnv), "path to YAML configuration file")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, os.Stderr); err != nil {
		slog.Error("mcp-twitter stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. Variables already set
// win. A missing file is ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func run(ctx context.Context, configPath string, logOut io.Writer) error {
	// .env may set the path too.
	if configPath == "" {
		configPath = os.Getenv(config.PathEnv)
	}
	cfg, err := config.Load(configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger(logOut)
	slog.SetDefault(logger)

	mode, err := auth.ParseMode(cfg.Twitter.AuthMode)
	if err != nil {
		return err
	}
	if err := auth.CheckEnv(mode, os.LookupEnv); err != nil {
		return err
	}

	authCfg, cleanup, err := authConfig(ctx, cfg, mode)
	if err != nil {
		return err
	}
	defer cleanup()

	manager, err := auth.New(ctx, authCfg)
	if err != nil {
		return err
	}

	reg, err := tweets.NewRegistry()
	if err != nil {
		return err
	}
	srv := mcpserver.New(serverName, serverVersion,
		mcpserver.WithLogger(logger),
		mcpserver.WithCallTimeout(cfg.Server.ToolTimeout))
	mcpserver.Register(srv, reg, manager)

	slog.Info("mcp-twitter serving", slog.String("mode", string(mode)), slog.Int("tools", reg.Len()))
	return srv.Run(ctx)
}

// authConfig maps the loaded configuration onto auth.Config. cleanup releases
// the session store connection.
func authConfig(ctx context.Context, cfg *config.Config, mode auth.Mode) (auth.Config, func(), error) {
	cleanup := func() {}
	out := auth.Config{Mode: mode}

	switch mode {
	case auth.ModeAPI:
		out.API = twitterapi.Config{
			APIKey:            cfg.Twitter.APIKey,
			APISecret:         cfg.Twitter.APISecret,
			AccessToken:       cfg.Twitter.AccessToken,
			AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
		}
		return out, cleanup, nil

	case auth.ModeCredentials:
		out.Credentials = twitter.ClientConfig{
			Username:    cfg.Twitter.Username,
			Password:    cfg.Twitter.Password,
			Email:       cfg.Twitter.Email,
			TOTPSecret:  cfg.Twitter.TOTPSecret,
			AuthToken:   cfg.Twitter.AuthToken,
			CT0:         cfg.Twitter.CT0,
			Proxy:       cfg.Twitter.Proxy,
			SessionTTL:  cfg.Twitter.SessionTTL,
			MetricsHook: func(endpoint string, success, rateLimited bool) {
				slog.Debug("twitter request",
					slog.String("endpoint", endpoint),
					slog.Bool("success", success),
					slog.Bool("rate_limited", rateLimited))
			},
		}
		if cfg.Twitter.SessionRedisURL != "" {
			store, err := twitter.NewRedisSessionStore(ctx, cfg.Twitter.SessionRedisURL, cfg.Twitter.SessionTTL)
			if err != nil {
				return auth.Config{}, cleanup, fmt.Errorf("session store: %w", err)
			}
			out.Credentials.Sessions = store
			cleanup = func() { _ = store.Close() }
		} else {
			out.Credentials.Sessions = twitter.NewFileSessionStore(cfg.Twitter.SessionDir)
		}
		if cfg.Twitter.CapsolverAPIKey != "" {
			out.Credentials.CaptchaSolver = captcha.NewCapsolver(cfg.Twitter.CapsolverAPIKey)
		}
		return out, cleanup, nil
	}
	return auth.Config{}, cleanup, fmt.Errorf("%w: %q", auth.ErrInvalidMode, mode)
}

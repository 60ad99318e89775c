// Command mcp-starknet serves the Starknet account deployment tools over MCP
// stdio. Arguments name the tools or plugins to expose, for example:
//
//	mcp-starknet openzeppelin argent
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

	"github.com/0xhijo/mcp-twitter/config"
	"github.com/0xhijo/mcp-twitter/mcpserver"
	"github.com/0xhijo/mcp-twitter/starknet"
)

const (
	serverName    = "snak"
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

	if err := run(ctx, *configPath, flag.Args(), os.Stderr); err != nil {
		slog.Error("mcp-starknet stopped", slog.Any("error", err))
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

func run(ctx context.Context, configPath string, allowed []string, logOut io.Writer) error {
	if configPath == "" {
		configPath = os.Getenv(config.PathEnv)
	}
	cfg, err := config.Load(configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger(logOut)
	slog.SetDefault(logger)

	reg, err := starknet.NewRegistry(allowed)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		slog.Warn("no tools allowed", slog.Any("args", allowed))
	}

	deployer, err := starknet.NewRPCDeployer(starknet.RPCConfig{
		URL:                 cfg.Starknet.RPCURL,
		FeeMultiplier:       cfg.Starknet.FeeMultiplier,
		ReceiptPollInterval: cfg.Starknet.ReceiptPollInterval,
	})
	if err != nil {
		return err
	}

	srv := mcpserver.New(serverName, serverVersion,
		mcpserver.WithLogger(logger),
		mcpserver.WithCallTimeout(cfg.Server.ToolTimeout))
	mcpserver.Register[starknet.Deployer](srv, reg, deployer)

	slog.Info("mcp-starknet serving", slog.Int("tools", reg.Len()), slog.String("rpc_url", cfg.Starknet.RPCURL))
	return srv.Run(ctx)
}

// cmd/fantasia/main.go
//
// Fantasia – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Parse the command line (bootstrap console logger).
//
//  2. Build the configuration: defaults, TOML file, .env, environment,
//     command-line flags; validate; resolve a `vault:` password.
//
//  3. Replace the bootstrap logger with the one `[log]` asks for.
//
//  4. Resolve the listen address and connect to Postgres.
//
//  5. Bind every resolved socket.  Any bind failure aborts start-up.
//
//  6. Optionally bind the Prometheus listener (`[fantasia] metrics_addr`).
//
//  7. Serve until SIGINT/SIGTERM, then drain and exit.
//
// Every failure is logged with the step it came from and exits 1.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/yanizio/fantasia/internal/app"
	"github.com/yanizio/fantasia/internal/args"
	"github.com/yanizio/fantasia/internal/config"
	"github.com/yanizio/fantasia/internal/logger"
	"github.com/yanizio/fantasia/internal/resolve"
	"github.com/yanizio/fantasia/internal/server"
	"github.com/yanizio/fantasia/internal/vault"
)

func main() { os.Exit(start()) }

// start runs Fantasia and returns the process exit code.
func start() int {
	boot := logger.Bootstrap()
	defer func() { _ = boot.Sync() }()

	a, err := args.Parse(os.Args[1:], boot)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stdout, "Usage of fantasia:\n%s", args.Usage())
		return 0
	}
	if err != nil {
		boot.Error("startup failed", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, a, boot)
	if err != nil {
		boot.Error("startup failed", zap.Error(err))
		return 1
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Dir, logger.IsTTY())
	if err != nil {
		boot.Error("startup failed", zap.Error(fmt.Errorf("start logger: %w", err)))
		return 1
	}
	defer func() { _ = log.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fantasia stopped", zap.Error(err))
		return 1
	}
	log.Info("fantasia stopped")
	return 0
}

// loadConfig layers every configuration source in precedence order.
func loadConfig(ctx context.Context, a *args.Args, log *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load(a.Config, log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Dotenv(cfg.Fantasia.EnvFile, log); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	if err := config.MergeEnv(cfg, log); err != nil {
		return nil, fmt.Errorf("merge environment: %w", err)
	}
	if err := config.MergeFlags(cfg, a.Flags, log); err != nil {
		return nil, fmt.Errorf("merge flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pw, err := vault.Resolve(ctx, cfg.Postgres.Password, log)
	if err != nil {
		return nil, fmt.Errorf("resolve postgres password: %w", err)
	}
	cfg.Postgres.Password = pw
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	f, err := app.NewFromAddr(ctx, cfg.Fantasia.Host, cfg.Fantasia.Port, cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer f.Close()

	servers, err := server.Collect(f.Bind(ctx))
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}

	if cfg.Fantasia.MetricsAddr != "" {
		ms, err := bindMetrics(ctx, cfg.Fantasia.MetricsAddr, log)
		if err != nil {
			for _, s := range servers {
				_ = s.Close()
			}
			return fmt.Errorf("bind metrics: %w", err)
		}
		servers = append(servers, ms...)
	}

	return server.Run(ctx, servers, log)
}

// bindMetrics serves promhttp on addr, kept apart from the application
// listeners.  ":port" listens on every IPv4 interface.
func bindMetrics(ctx context.Context, addr string, log *zap.Logger) ([]*server.Bound, error) {
	mlog := log.Named("metrics")
	sockets, err := resolve.HostPort(ctx, addr, mlog)
	if err != nil {
		return nil, err
	}
	return server.Collect(server.Bind(ctx, sockets, promhttp.Handler(), mlog))
}

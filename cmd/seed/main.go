// Command seed loads a YAML fixture of companies, users and approval rules
// into the configured database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/config"
	"github.com/garyjia/expense-approval/internal/container"
	"github.com/garyjia/expense-approval/internal/seed"
	"github.com/garyjia/expense-approval/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	fixturePath := flag.String("file", "configs/seeds/example.yaml", "path to the seed fixture")
	flag.Parse()

	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, *fixturePath, logger); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, fixturePath string, logger *zap.Logger) error {
	fixture, err := seed.LoadFile(fixturePath)
	if err != nil {
		return err
	}

	cc := cfg.ToContainerConfig()
	cc.Metrics.Enabled = false

	c, err := container.NewContainer(cc, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := c.Services()
	res, err := seed.NewSeeder(services.Directory, services.Rules, logger).Run(ctx, fixture)
	if err != nil {
		return err
	}

	for name, id := range res.Companies {
		logger.Info("Company ready",
			zap.String("company", name),
			zap.Int64("company_id", id),
			zap.Any("users", res.Users[name]),
			zap.Any("rules", res.Rules[name]),
		)
	}
	return nil
}

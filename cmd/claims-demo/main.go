package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/application/service"
	"github.com/garyjia/ai-claims/internal/config"
	"github.com/garyjia/ai-claims/internal/container"
	"github.com/garyjia/ai-claims/internal/demo"
	"github.com/garyjia/ai-claims/pkg/utils"
)

const taskTimeout = 30 * time.Second

var (
	configPath string
	storeFlag  string
	logLevel   string
	exportPath string
)

var rootCmd = &cobra.Command{
	Use:           "claims-demo",
	Short:         "Walk sample claims through the processing pipeline",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit the demo scenarios and approve the first pending claim",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	runCmd.Flags().StringVar(&storeFlag, "store", config.DriverMemory, "claim store driver (memory or sqlite)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level")
	runCmd.Flags().StringVar(&exportPath, "export", "", "write the processed claims to this XLSX file")
	rootCmd.AddCommand(runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Database.Driver = storeFlag
	cfg.Logger.Level = logLevel

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container close failed", zap.Error(err))
		}
	}()

	runner := demo.NewRunner(c.ClaimService(), os.Stdout, taskTimeout)
	if _, err := runner.Run(ctx); err != nil {
		return err
	}

	if exportPath != "" {
		return export(ctx, c, exportPath)
	}
	return nil
}

func export(ctx context.Context, c *container.Container, path string) error {
	claims, err := c.ClaimService().List(ctx, port.ClaimFilter{})
	if err != nil {
		return fmt.Errorf("list claims: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := c.Exporter().Write(f, claims, service.ComputeStatistics(claims)); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	fmt.Printf("Exported %d claims to %s\n", len(claims), path)
	return nil
}

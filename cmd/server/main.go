package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/config"
	"github.com/ifuryst/agencylens/internal/server"
	"github.com/ifuryst/agencylens/internal/service"
	"github.com/ifuryst/agencylens/pkg/logger"
	"github.com/ifuryst/agencylens/pkg/util"
)

var (
	configPath string
	version    = "0.1.0"
	gitCommit  = "unknown"
	buildTime  = "unknown"

	syncCompanies string
	syncForce     bool
)

var rootCmd = &cobra.Command{
	Use:   "agencylens",
	Short: "AgencyLens - Marketing analytics sync engine",
	Long:  `AgencyLens pulls daily metrics from Google Analytics, Search Console, YouTube and LinkedIn for every client company and serves them to the agency dashboard.`,
	RunE:  runServer,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and scheduler",
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("AgencyLens %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and print the result as JSON",
	RunE:  runSync,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	syncCmd.Flags().StringVar(&syncCompanies, "companies", "", "comma separated company ids (default all)")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "sync pairs that are still fresh")
	rootCmd.AddCommand(serveCmd, versionCmd, syncCmd)
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, appLogger, nil
}

func runServer(*cobra.Command, []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	appLogger.Info("Starting AgencyLens server", zap.String("version", version))

	// Create server
	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case <-ctx.Done():
		appLogger.Info("Server context cancelled")
	}

	// Graceful shutdown
	if err := srv.Shutdown(context.Background()); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	app, err := service.NewApp(cfg, appLogger)
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.Sync.Run(cmd.Context(), service.SyncRequest{
		CompanyIDs: util.ParseCSV(syncCompanies),
		Force:      syncForce,
		Trigger:    service.TriggerCLI,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

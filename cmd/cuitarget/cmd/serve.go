package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/cuitarget/internal/core/api"
	"github.com/solatis/cuitarget/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC targeting service",
	Long:  `serve loads the stored ontology into memory and answers cuitarget.v1.Targeting/Select. SIGHUP reloads the ontology.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	database, store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer database.Close()

	service, err := api.NewTargetingService(store, &cfg.Server, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := service.Reload(ctx); err != nil {
		return fmt.Errorf("%w (run 'cuitarget import-rrf' first)", err)
	}

	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info().Str("version", Version).Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting cuitarget")
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case err := <-errChan:
			return err
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if err := service.Reload(ctx); err != nil {
					log.Error().Err(err).Msg("reload failed, keeping previous ontology")
				}
				continue
			}
			log.Info().Msg("shutting down gracefully")
			return grpcServer.Shutdown(context.WithoutCancel(ctx))
		}
	}
}

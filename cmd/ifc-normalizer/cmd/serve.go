package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pb40development/ifc-normalizer/internal/config"
	"github.com/pb40development/ifc-normalizer/internal/jobs"
	"github.com/pb40development/ifc-normalizer/internal/server"
	"github.com/pb40development/ifc-normalizer/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the normalization job API",
	Long: `Serve starts an HTTP server that accepts IFC uploads, normalizes them
in the background and offers the results for download:

  POST   /upload                  multipart upload (field "ifcFile")
  GET    /status/{jobId}          job lifecycle state
  GET    /download/ifc/{jobId}    normalized document
  GET    /download/report/{jobId} change report
  DELETE /jobs/{jobId}            discard a job
  GET    /health                  liveness`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port")
	serveCmd.Flags().String("host", "", "listen host")
	cobra.CheckErr(viper.BindPFlag(config.KeyServerPort, serveCmd.Flags().Lookup("port")))
	cobra.CheckErr(viper.BindPFlag(config.KeyServerHost, serveCmd.Flags().Lookup("host")))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := logging.Default()

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	registry := jobs.NewRegistry(jobs.NewProcessor(eng))

	serverCfg := server.DefaultConfig()
	if cfg.Server.Host != "" {
		serverCfg.Host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		serverCfg.Port = cfg.Server.Port
	}
	srv := server.New(serverCfg, registry)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rentwerk/mietflow/internal/config"
	"github.com/rentwerk/mietflow/internal/engine"
	"github.com/rentwerk/mietflow/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload web service",
		Long: `Starts an HTTP service with an upload form: tenant ledger and bank
statement go in, the reconciled workbook comes back as a download.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":5000", "listen address")
	cmd.Flags().String("upload-dir", "uploads", "directory for uploaded files")
	cmd.Flags().String("results-dir", "results", "directory for produced artifacts")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	appCfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	srvCfg := server.DefaultServerConfig()
	srvCfg.Addr, _ = cmd.Flags().GetString("addr")
	srvCfg.UploadDir, _ = cmd.Flags().GetString("upload-dir")
	srvCfg.ResultsDir, _ = cmd.Flags().GetString("results-dir")

	eng := engine.New(appCfg.Engine, slog.Default())
	srv, err := server.NewServer(srvCfg, eng, slog.Default())
	if err != nil {
		return err
	}

	go func() {
		<-cmd.Context().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Server listening", "addr", srvCfg.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

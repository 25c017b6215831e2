package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API exposing the assistant to other clients.

Endpoints:
  POST /v1/ask            Ask a question, get one JSON answer
  POST /v1/ask/stream     Ask a question, stream progress as SSE
  GET  /v1/providers/test Check provider availability`,
	Run: func(cmd *cobra.Command, args []string) {
		a := initApp()
		defer a.Close()

		addr := serveAddr
		if addr == "" {
			addr = a.cfg.Server.Addr
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.New(a.loop, a.selector, a.logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		a.logger.Info("http server listening", zap.String("addr", addr))
		fmt.Printf("Listening on %s\n", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			printError("Server failed", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

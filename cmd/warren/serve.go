package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warrenhq/warren"
	httpAdapter "github.com/warrenhq/warren/internal/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the Warren engine in server mode, exposing the conversation API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		w, err := buildApp(cmd)
		if err != nil {
			fmt.Printf("Error initializing warren: %v\n", err)
			os.Exit(1)
		}

		port, _ := cmd.Flags().GetString("port")
		if !cmd.Flags().Changed("port") {
			port = w.cfg.Port
		}

		handler := httpAdapter.NewHandler(w.app.Manager, w.reg,
			httpAdapter.WithTransitionReader(w.reader),
			httpAdapter.WithLogger(w.logger),
			httpAdapter.WithVersion(warren.Version),
		)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Warren Server on %s\n", srv.Addr)
			fmt.Printf("Serving flow: %s\n", w.cfg.FlowPath)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			if err := w.app.Close(ctx); err != nil {
				fmt.Printf("Recorder drain did not complete: %v\n", err)
			}
			fmt.Println("Warren Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}

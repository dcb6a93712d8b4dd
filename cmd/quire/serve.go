package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go.quire.dev/quire"
	"go.quire.dev/quire/resolver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve module loads over HTTP",
	Long:  `serve exposes POST /require: the request body is a module specifier, the response is the module's exported value as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		rt, err := newRuntime(logger)
		if err != nil {
			return err
		}
		defer rt.Stop(false)

		addr := viper.GetString("addr")
		logger.Info("ready", zap.String("addr", addr))

		return http.ListenAndServe(addr, newRouter(logger, rt))
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8081", "listen address")
	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func newRouter(logger *zap.Logger, rt *quire.Runtime) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	router.Post("/require", requireHandler(logger, rt))
	return router
}

func requireHandler(logger *zap.Logger, rt *quire.Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Failed to read specifier from body: %v", err)
			return
		}

		specifier := string(bytes.TrimSpace(body))
		if specifier == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "Expecting a module specifier in the request body")
			return
		}

		exports, err := rt.Require(r.Context(), specifier)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, resolver.ErrNotFound) {
				status = http.StatusNotFound
			}
			w.WriteHeader(status)
			fmt.Fprint(w, err)
			return
		}

		logger.Info("module served", zap.String("specifier", specifier))

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(exports); err != nil {
			logger.Error("error encoding exports", zap.Error(err))
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/vet-portal/internal/app"
	"github.com/jwalitptl/vet-portal/internal/config"
	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/store"
	"github.com/jwalitptl/vet-portal/pkg/logger"
	"github.com/jwalitptl/vet-portal/pkg/messaging"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "vet-portal",
		Short: "Veterinary clinic portal API",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reloadCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})
	return cfg, log, nil
}

// load opens the configured storage and builds an App over it with the collections
// already read.
func load(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app.App, *app.Storage, error) {
	storage, err := app.OpenStorage(ctx, cfg.Storage, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	opts := app.Options{Config: cfg, KV: storage.KV, Logger: log}
	if storage.Broker != nil {
		opts.Publisher = storage.Broker
	}
	a, err := app.New(opts)
	if err != nil {
		_ = storage.Close()
		return nil, nil, err
	}
	if err := a.Store.Reload(ctx); err != nil {
		_ = storage.Close()
		return nil, nil, fmt.Errorf("failed to load collections: %w", err)
	}
	return a, storage, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			return runServer(cfg, log)
		},
	}
}

func runServer(cfg *config.Config, log *logger.Logger) error {
	a, storage, err := load(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.Router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited properly")
	return nil
}

func reloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Read every collection from storage and report the counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			a, storage, err := load(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer storage.Close()

			snap := a.Store.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "people=%d pets=%d appointments=%d records=%d pre_appointments=%d\n",
				len(snap.People), len(snap.Pets), len(snap.Appointments), len(snap.Records), len(a.Store.PreAppointments()))
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var personID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a stored person",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if ttl > 0 {
				cfg.Auth.TokenTTL = ttl
			}
			a, storage, err := load(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer storage.Close()

			person, err := a.Store.GetPerson(personID)
			if err != nil {
				return fmt.Errorf("person %s: %w", personID, err)
			}
			token, err := a.Tokens.GenerateAccessToken(model.Identity{
				PersonID: person.ID,
				Name:     person.Name,
				Role:     person.Role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&personID, "person", "", "person id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to auth.token_ttl")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print store change events published on Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			broker, err := app.DialBroker(ctx, cfg.Storage.Redis.URL, log)
			if err != nil {
				return err
			}
			defer broker.Close()

			out := cmd.OutOrStdout()
			return messaging.Consume(ctx, broker, messaging.ChangesChannel, func(msg []byte) error {
				var change store.Change
				if err := json.Unmarshal(msg, &change); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s %s %s\n", change.At.Format(time.RFC3339), change.Op, change.Kind, change.ID)
				return nil
			}, func(err error) {
				log.Warn(err, "skipping malformed change event")
			})
		},
	}
}

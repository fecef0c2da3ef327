package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"github.com/certivo/certivo/analyzer"
	"github.com/certivo/certivo/api"
	"github.com/certivo/certivo/challenge"
	"github.com/certivo/certivo/config"
	"github.com/certivo/certivo/engine"
	"github.com/certivo/certivo/replay"
	"github.com/certivo/certivo/report"
	bboltstorage "github.com/certivo/certivo/storage/bbolt"
	"github.com/certivo/certivo/trust"
)

var (
	port       int
	dataDir    string
	policyFile string
	tlsCert    string
	tlsKey     string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the verification service server",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := config.Load(policyFile)
		if err != nil {
			return err
		}
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("invalid policy: %w", err)
		}

		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		// Sessions, trust grants, and media hashes share one bbolt file;
		// each component owns its bucket.
		db, err := bbolt.Open(filepath.Join(dataDir, "certivo.db"), 0o600, nil)
		if err != nil {
			return fmt.Errorf("failed to open session storage: %w", err)
		}
		defer db.Close()

		store, err := bboltstorage.NewStore(db)
		if err != nil {
			return fmt.Errorf("failed to init session store: %w", err)
		}
		guard, err := replay.NewBoltGuard(db)
		if err != nil {
			return fmt.Errorf("failed to init replay guard: %w", err)
		}
		trusted, err := trust.NewBoltCache(db)
		if err != nil {
			return fmt.Errorf("failed to init trust cache: %w", err)
		}
		reports, err := report.OpenSQLite(filepath.Join(dataDir, "reports.db"))
		if err != nil {
			return fmt.Errorf("failed to open report log: %w", err)
		}
		defer reports.Close()

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		issuer := challenge.NewIssuer(challenge.DefaultCatalog(),
			challenge.WithChallengeCount(policy.ChallengeCount),
			challenge.WithMaxAttempts(policy.MaxAttempts),
			challenge.WithTimeLimit(policy.TimeLimitSeconds),
		)
		eng := engine.New(store, issuer, analyzer.NewMotionAnalyzer(), guard, trusted,
			engine.WithReportStore(reports),
			engine.WithSessionLifetime(policy.SessionLifetime.Std()),
			engine.WithTrustTTL(policy.TrustTTL.Std()),
			engine.WithLogger(logger),
		)

		a := api.New(eng,
			api.WithLogger(logger),
			api.WithReportStore(reports),
			api.WithAlertFunc(func(e api.AlertEvent) {
				logger.Warn("anomaly detected",
					slog.String("type", string(e.Type)),
					slog.String("message", e.Message),
					slog.Int("count", e.Count),
					slog.Int("threshold", e.Threshold),
				)
			}),
		)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		useTLS := tlsCert != "" && tlsKey != ""
		if useTLS {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if useTLS {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (data: %s)...\n", port, dataDir)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8420, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&policyFile, "policy", "./certivo.yaml", "Path to the policy file")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}

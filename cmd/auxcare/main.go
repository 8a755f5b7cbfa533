package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/auxcare/internal/app"
	"github.com/ehr/auxcare/internal/config"
	"github.com/ehr/auxcare/internal/domain/room"
	"github.com/ehr/auxcare/internal/platform/bridge"
	"github.com/ehr/auxcare/internal/platform/db"
	"github.com/ehr/auxcare/internal/platform/resource"
	"github.com/ehr/auxcare/internal/sandbox"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "auxcare",
		Short:        "Hospital auxiliary staff client",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Int("id", 0, "Auxiliary ID to log in with")
	rootCmd.PersistentFlags().String("password", "", "Auxiliary password (or AUXCARE_PASSWORD)")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(roomsCmd())
	rootCmd.AddCommand(patientCmd())
	rootCmd.AddCommand(careCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(sandboxCmd())
	return rootCmd
}

// newLogger writes JSON to out, or console output in development.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// session loads the config, builds the client and logs in with the
// persistent --id and --password flags. The caller closes the App.
func session(cmd *cobra.Command) (*app.App, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	a, err := app.NewFromConfig(cfg, nil, logger)
	if err != nil {
		return nil, logger, err
	}

	id, _ := cmd.Flags().GetInt("id")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("AUXCARE_PASSWORD")
	}
	if id == 0 {
		a.Close()
		return nil, logger, fmt.Errorf("--id is required")
	}

	snap, err := a.Do(cmd.Context(), app.OpLogin, app.Params{AuxiliaryID: id, Password: password})
	if err != nil {
		a.Close()
		return nil, logger, err
	}
	if snap.Kind != resource.Success {
		a.Close()
		return nil, logger, fmt.Errorf("login failed: %s", describe(snap))
	}
	return a, logger, nil
}

func describe(snap resource.Snapshot) string {
	if snap.Error != "" {
		return fmt.Sprintf("%s (%s)", snap.KindName, snap.Error)
	}
	return snap.KindName
}

// printSnapshot writes the payload of a successful state as indented JSON.
// NotFound prints an empty result; other failures become an error.
func printSnapshot(w io.Writer, snap resource.Snapshot) error {
	switch snap.Kind {
	case resource.Success:
	case resource.NotFound:
		_, err := fmt.Fprintln(w, "[]")
		return err
	default:
		return fmt.Errorf("%s: %s", snap.Resource, describe(snap))
	}
	data, err := json.MarshalIndent(snap.Payload, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func runOperation(cmd *cobra.Command, op string, p app.Params) error {
	a, _, err := session(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.Do(cmd.Context(), op, p)
	if err != nil {
		return err
	}
	return printSnapshot(cmd.OutOrStdout(), snap)
}

func historialArg(args []string) (int, error) {
	h, err := strconv.Atoi(args[0])
	if err != nil || h <= 0 {
		return 0, fmt.Errorf("invalid historial number %q", args[0])
	}
	return h, nil
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials against the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := session(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, _ := a.Auxiliary.Session().Get()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s %s (%d), token expires %s\n",
				sess.Auxiliary.Name, sess.Auxiliary.Surname, sess.Auxiliary.ID, sess.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

func roomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List rooms and their patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, app.OpGetAllRooms, app.Params{})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "assign <room> <historial>",
		Short: "Assign a patient to a free room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid room number %q", args[0])
			}
			h, err := historialArg(args[1:])
			if err != nil {
				return err
			}
			return runAcknowledged(cmd, app.OpAssignRoom, app.Params{RoomNumber: number, HistorialNumber: h})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "release <room>",
		Short: "Release a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid room number %q", args[0])
			}
			return runAcknowledged(cmd, app.OpReleaseRoom, app.Params{RoomNumber: number})
		},
	})
	return cmd
}

func runAcknowledged(cmd *cobra.Command, op string, p app.Params) error {
	a, _, err := session(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.Do(cmd.Context(), op, p)
	if err != nil {
		return err
	}
	if snap.Kind != resource.SuccessCreation {
		return fmt.Errorf("%s: %s", op, describe(snap))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "OK")
	return nil
}

func patientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Read patients",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <historial>",
		Short: "Show one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := historialArg(args)
			if err != nil {
				return err
			}
			return runOperation(cmd, app.OpGetPatient, app.Params{HistorialNumber: h})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, app.OpGetAllPatients, app.Params{})
		},
	})
	return cmd
}

func careCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "care",
		Short: "Read care records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <historial>",
		Short: "List the care records of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := historialArg(args)
			if err != nil {
				return err
			}
			return runOperation(cmd, app.OpGetCareRecords, app.Params{HistorialNumber: h})
		},
	})
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Serve resource state over WebSocket and refresh rooms periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			a, err := app.NewFromConfig(cfg, reg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			hub := bridge.NewHub(logger)
			detach := a.Attach(hub)
			defer detach()

			id, _ := cmd.Flags().GetInt("id")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("AUXCARE_PASSWORD")
			}
			if id != 0 {
				if err := a.Trigger(app.OpLogin, app.Params{AuxiliaryID: id, Password: password}); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              ":" + cfg.BridgePort,
				Handler:           bridge.NewServer(hub, a.Current, reg, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info().Str("port", cfg.BridgePort).Msg("bridge listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				hub.NotifyClosing("auxcare watch shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				return refreshRooms(gctx, a, cfg.RefreshInterval, logger)
			})
			return g.Wait()
		},
	}
}

// refreshRooms lists rooms every interval once a session exists.
func refreshRooms(ctx context.Context, a *app.App, interval time.Duration, logger zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, ok := a.Auxiliary.Session().Get(); !ok {
				continue
			}
			if err := a.Trigger(app.OpGetAllRooms, app.Params{}); err != nil {
				if errors.Is(err, app.ErrClosed) {
					return nil
				}
				return err
			}
			logger.Debug().Str("resource", room.ResourceRooms).Msg("refresh triggered")
		}
	}
}

func sandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run the local backend used for development and tests",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sandbox backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetBool("seed")
			return runSandbox(cmd, seed)
		},
	}
	serveCmd.Flags().Bool("seed", false, "Seed the Postgres store before serving (the memory store is always seeded)")
	cmd.AddCommand(serveCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the sandbox schema to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, sandbox.Migrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, sandbox.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})
	cmd.AddCommand(migrateCmd)
	return cmd
}

func runSandbox(cmd *cobra.Command, seedPG bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	if err := cfg.ValidateSandbox(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := sandbox.Options{SigningKey: cfg.SigningKey()}
	var store sandbox.Store
	seed := true
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		if _, err := db.NewMigrator(pool, sandbox.Migrations()).Up(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		store = sandbox.NewPGStore(pool)
		opts.DB = pool
		opts.DBStats = func() *db.PoolStats { return db.GetPoolStats(pool) }
		seed = seedPG
		logger.Info().Msg("sandbox using postgres store")
	} else {
		store = sandbox.NewMemoryStore()
	}

	if seed {
		seedCfg := sandbox.DefaultSeedConfig()
		seedCfg.Seed = cfg.SandboxSeed
		res, err := sandbox.NewSeeder(seedCfg).Seed(ctx, store)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info().
			Int("patients", res.Patients).
			Int("rooms", res.Rooms).
			Int("occupied", res.Occupied).
			Dur("duration", res.Duration).
			Msg("sandbox seeded")
	}

	e := sandbox.NewServer(store, opts, logger)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.SandboxPort).Msg("sandbox listening")
		if err := e.Start(":" + cfg.SandboxPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down sandbox")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

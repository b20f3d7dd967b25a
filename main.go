// Package classification ON-LAB-IL API
//
// Sample tracking for plant pathogen resistance testing
//
//     Schemes: https
//     BasePath: /api/v1
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
// swagger:meta
package main

//swagger generate spec --scan-models -o ./swagger.json

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jinzhu/gorm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"onlab_backend/app/activitylog"
	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
	"onlab_backend/app/reportbundle"
	"onlab_backend/app/samplebundle"
	"onlab_backend/app/systembundle"
	"onlab_backend/app/tableconfig"
	"onlab_backend/app/websocket"
)

const (
	dbConnectAttempts = 10
	shutdownTimeout   = 10 * time.Second
)

var (
	name = "onlab_backend"
	v    = "undefined"

	configFile string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          name,
		Short:        "ON-LAB-IL sample tracking backend",
		Version:      v,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.LoadConfig(configFile)
			if err != nil {
				return err
			}
			core.Config = cfg

			logger, err := core.NewLogger(cfg.Logging, verbose)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			core.Logger = logger
			return core.SetDayLocation(cfg.Server.Timezone)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = core.Logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file, json or yaml (default ./config.json or /etc/onlab/config.json)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newWhitelistCmd(), newBackupCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return startServer(ctx)
		},
	}
}

// connectDatabase retries while the database is not reachable yet.
func connectDatabase(ctx context.Context) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		ormDB, err := core.OpenDatabase(core.Config.Database)
		if err == nil {
			return ormDB, nil
		}
		lastErr = err
		core.Logger.Warn("connecting to database failed", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return nil, lastErr
}

func migrateAll(ormDB *gorm.DB) error {
	migrations := []struct {
		name    string
		migrate func(*gorm.DB) error
	}{
		{"system", systembundle.AutoMigrate},
		{"activity log", activitylog.AutoMigrate},
		{"samples", samplebundle.AutoMigrate},
		{"table config", tableconfig.AutoMigrate},
	}
	for _, m := range migrations {
		if err := m.migrate(ormDB); err != nil {
			return fmt.Errorf("migrating %s: %w", m.name, err)
		}
		core.Logger.Info("migrated", zap.String("tables", m.name))
	}
	return nil
}

func newTableConfigRegistry() *tableconfig.Registry {
	registry := tableconfig.NewRegistry(core.Config.Server.TableConfigPath)
	for _, tableStruct := range []interface{}{samplebundle.SampleListItem{}, activitylog.ActivityLog{}} {
		if err := registry.Register4TableConfig(tableStruct); err != nil {
			core.Logger.Warn("registering table config failed", zap.Error(err))
		}
	}
	return registry
}

func initBundles(ormDB *gorm.DB, sessions core.SessionStore, cat *catalog.Catalog, hub *websocket.Hub, mailer core.Mailer) []core.Bundle {
	verifier := core.NewIdentityVerifier(core.Config.Auth.JWTSecret, core.Config.Auth.JWTIssuer)
	geocoder := core.NewGeocoder(core.Config.Server.GeocoderUrl)

	return []core.Bundle{
		catalog.NewCatalogBundle(cat, geocoder),
		systembundle.NewSystemBundle(ormDB, sessions, cat, hub, verifier),
		samplebundle.NewSampleBundle(ormDB, sessions, cat, hub, mailer),
		reportbundle.NewReportBundle(ormDB, sessions, cat),
		tableconfig.NewTableConfigBundle(ormDB, sessions, newTableConfigRegistry()),
	}
}

func startServer(ctx context.Context) error {
	core.Logger.Info("starting", zap.String("name", name), zap.String("version", v))

	ormDB, err := connectDatabase(ctx)
	if err != nil {
		return err
	}
	defer ormDB.Close()

	sessions, err := core.NewSessionStore(ctx, core.Config)
	if err != nil {
		return err
	}
	if closer, ok := sessions.(io.Closer); ok {
		defer closer.Close()
	}

	cat, err := catalog.Load(core.Config.Catalog)
	if err != nil {
		return err
	}

	var mailer core.Mailer
	if core.Config.MailServer.SmtpHost != "" {
		mailer = core.NewSMTPMailer(core.Config.MailServer)
	} else {
		core.Logger.Info("no smtp host configured, lab notifications are disabled")
	}

	hub := websocket.NewHub()
	router := newRouter(initBundles(ormDB, sessions, cat, hub, mailer), sessions)

	// a restarted process keeps the logins of the memory store
	if core.Config.Sessions.Backend != "redis" {
		ttl := time.Duration(core.Config.Auth.SessionTTLHours) * time.Hour
		if _, err := systembundle.RestoreSessions(ctx, ormDB, sessions, ttl); err != nil {
			core.Logger.Error("restoring sessions failed", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", core.Config.Server.InternalPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		core.Logger.Info("listening", zap.String("address", server.Addr), zap.Bool("ssl", core.Config.Server.WithSSL))
		var err error
		if core.Config.Server.WithSSL {
			err = server.ListenAndServeTLS(core.Config.Server.SSLCertFile, core.Config.Server.SSLKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		core.Logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

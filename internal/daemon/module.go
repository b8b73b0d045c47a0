package daemon

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/api"
	"github.com/wabridge/wabridge/internal/archive"
	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/lock"
	"github.com/wabridge/wabridge/internal/logging"
	"github.com/wabridge/wabridge/internal/session"
	"github.com/wabridge/wabridge/internal/status"
	"github.com/wabridge/wabridge/internal/wa"
)

// Params holds the resolved daemon configuration passed to the fx module.
type Params struct {
	SessionName    string
	ListenAddr     string
	ArchiveEnabled bool
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideRegistry,
			provideClient,
			provideAdapter,
			provideArchive,
			provideRecorder,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideRegistry() *wa.Registry {
	return wa.NewRegistry(0)
}

func provideClient(p Params, b *bus.Bus, machine *status.Machine, registry *wa.Registry, logger *zap.Logger) (*wa.Client, error) {
	return wa.NewClient(context.Background(), p.SessionName, b, machine, registry, logger)
}

func provideAdapter(client *wa.Client, machine *status.Machine, logger *zap.Logger) *wa.Adapter {
	return wa.NewAdapter(client, machine, logger)
}

// provideArchive opens the archive database when the archive is enabled.
// A nil DB means the feature is off; the server skips its routes.
func provideArchive(p Params, logger *zap.Logger) (*archive.DB, error) {
	if !p.ArchiveEnabled {
		logger.Info("archive disabled")
		return nil, nil
	}
	dbPath := session.ArchiveDBPath(p.SessionName)
	db, err := archive.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("archive migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("archive migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("archive initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRecorder(db *archive.DB, b *bus.Bus, registry *wa.Registry, logger *zap.Logger) *archive.Recorder {
	if db == nil {
		return nil
	}
	return archive.NewRecorder(db, b, registry, logger)
}

func provideServer(p Params, adapter *wa.Adapter, machine *status.Machine, b *bus.Bus, client *wa.Client, db *archive.DB, logger *zap.Logger) *api.Server {
	return api.NewServer(p.ListenAddr, p.SessionName, adapter, machine, b, client, db, logger)
}

func registerLifecycle(lc fx.Lifecycle, p Params, srv *api.Server, lk *lock.Lock, client *wa.Client, recorder *archive.Recorder, db *archive.DB, machine *status.Machine, registry *wa.Registry, b *bus.Bus, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Translate whatsmeow events into state transitions and bus events.
			handler := wa.NewEventHandler(b, machine, registry, logger)
			client.RegisterEventHandler(handler.Handle)

			if recorder != nil {
				recorder.Start(context.Background())
			}

			if err := srv.Start(); err != nil {
				return err
			}
			addrFile := session.AddrFilePath(p.SessionName)
			if err := os.WriteFile(addrFile, []byte(srv.Addr()), 0600); err != nil {
				logger.Warn("could not write addr file", zap.Error(err))
			}

			// Connecting can block on the network; the HTTP layer must come
			// up regardless so /qr and /health answer during pairing.
			go func() {
				if err := client.Initialize(context.Background()); err != nil {
					logger.Error("session initialization failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
			if recorder != nil {
				recorder.Stop()
			}
			if err := client.Destroy(ctx); err != nil {
				logger.Warn("session teardown", zap.Error(err))
			}
			if db != nil {
				_ = db.Close()
			}
			_ = os.Remove(session.AddrFilePath(p.SessionName))
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

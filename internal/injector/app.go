package injector

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/contentpack/internal/config"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/game"
	"github.com/zeusync/contentpack/internal/server"
)

const shutdownTimeout = 5 * time.Second

// App is everything the server binary runs.
type App struct {
	Config    config.Config
	Logger    *log.Logger
	Game      *game.Game
	Server    *server.Server
	Endpoints []Endpoint
}

// Run starts the simulation, one listener per endpoint and the optional
// status server, and blocks until ctx ends or one of them fails.
func (a *App) Run(ctx context.Context) error {
	defer func() { _ = a.Logger.Sync() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Game.Loop.Run(ctx) })

	for _, ep := range a.Endpoints {
		ln, err := ep.Transport.Listen(ctx, ep.Addr)
		if err != nil {
			a.Logger.Error("failed to listen",
				log.String("transport", ep.Transport.Name()),
				log.String("addr", ep.Addr),
				log.Error(err))
			cancel()
			return errors.Join(err, g.Wait())
		}
		a.Logger.Info("listening",
			log.String("transport", ep.Transport.Name()),
			log.String("addr", ln.Addr().String()))
		g.Go(func() error { return a.Server.Serve(ctx, ln) })
	}

	if a.Config.Server.StatusAddr != "" {
		status := &http.Server{
			Addr:              a.Config.Server.StatusAddr,
			Handler:           a.Server.StatusHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.Logger.Info("status server listening", log.String("addr", status.Addr))
			if err := status.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return status.Shutdown(shutdownCtx)
		})
	}

	<-ctx.Done()
	a.Server.Close()
	return g.Wait()
}

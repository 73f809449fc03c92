package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long in-flight requests get to finish once
// serving stops.
const ShutdownTimeout = 10 * time.Second

// Run serves every bound listener concurrently.
//
// Cancelling ctx shuts all servers down gracefully and Run returns nil.  If
// any accept loop fails first, the others are shut down the same way and
// that failure is returned.
func Run(ctx context.Context, servers []*Bound, log *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, b := range servers {
		g.Go(func() error {
			log.Info("serving", zap.Stringer("addr", b.Addr))
			err := b.Server.Serve(b.Listener)
			b.release()

			if errors.Is(err, http.ErrServerClosed) && gctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("serve %s: %w", b.Addr, err)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", zap.Int("listeners", len(servers)))

		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		for _, b := range servers {
			if err := b.Server.Shutdown(sctx); err != nil {
				log.Warn("shutdown incomplete", zap.Stringer("addr", b.Addr), zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}

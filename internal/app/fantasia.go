// Package app assembles Fantasia: resolved sockets, the database pool, and
// the route table that every listener shares.
//
// Startup runs Configured -> Resolving -> Binding -> Serving.  NewFromAddr
// covers resolving and connecting; Bind hands off to the server package.
package app

import (
	"context"
	"fmt"
	"net/netip"

	"go.uber.org/zap"

	"github.com/yanizio/fantasia/internal/config"
	"github.com/yanizio/fantasia/internal/database"
	"github.com/yanizio/fantasia/internal/resolve"
	"github.com/yanizio/fantasia/internal/server"
)

// Fantasia is a ready-to-bind application.
type Fantasia struct {
	Sockets []netip.AddrPort
	State   *State
}

// New wraps already resolved sockets and an open pool.
func New(sockets []netip.AddrPort, db *database.Pool, log *zap.Logger) *Fantasia {
	return &Fantasia{
		Sockets: sockets,
		State:   &State{DB: db, Log: log},
	}
}

// NewFromAddr resolves host:port and connects to Postgres.  Nothing is
// retried; the first failure is returned wrapped with the step it came from.
func NewFromAddr(ctx context.Context, host string, port uint16, pg config.Postgres, log *zap.Logger) (*Fantasia, error) {
	sockets, err := resolve.Resolve(ctx, host, port, log)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address: %w", err)
	}

	db, err := database.Connect(ctx, pg, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(sockets, db, log), nil
}

// Bind listens on every socket with the shared route table and reports the
// outcome per socket.
func (f *Fantasia) Bind(ctx context.Context) []server.Binding {
	return server.Bind(ctx, f.Sockets, BindRoutes(f.State), f.State.Log)
}

// Close releases the database pool.
func (f *Fantasia) Close() error {
	if f.State.DB == nil {
		return nil
	}
	return f.State.DB.Close()
}

// Package server binds Fantasia's resolved addresses and drives the
// resulting listeners.
//
// Binding and serving are separate steps.  Bind reports an outcome per
// address, Collect applies the process policy (any failure aborts, and the
// listeners that did bind are closed again), and Run serves what is left
// until the context ends or one listener dies.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/fantasia/internal/metrics"
)

// ErrNoAddresses is returned by Collect when there was nothing to bind.
var ErrNoAddresses = errors.New("no addresses to bind")

// BindError reports a single address that could not be bound.
type BindError struct {
	Addr netip.AddrPort
	Err  error
}

func (e *BindError) Error() string { return fmt.Sprintf("bind %s: %v", e.Addr, e.Err) }
func (e *BindError) Unwrap() error { return e.Err }

// Bound is a listening socket paired with the server that will drive it.
type Bound struct {
	Addr     net.Addr // actual local address, port resolved when 0 was asked for
	Listener net.Listener
	Server   *http.Server

	once sync.Once
}

// Close closes the listener.  Safe to call more than once.
func (b *Bound) Close() error {
	err := b.Listener.Close()
	b.release()
	return err
}

// release drops b from the bound-listener gauge exactly once.
func (b *Bound) release() {
	b.once.Do(metrics.ListenersBound.Dec)
}

// Binding is the outcome for one requested address: exactly one of Bound
// and Err is set.
type Binding struct {
	Addr  netip.AddrPort
	Bound *Bound
	Err   error // *BindError
}

// Bind listens on every address concurrently and returns one Binding per
// address in input order.  Every bound listener gets its own server
// wrapping the shared handler.
func Bind(ctx context.Context, addrs []netip.AddrPort, handler http.Handler, log *zap.Logger) []Binding {
	out := make([]Binding, len(addrs))

	// A plain Group: one failed address must not stop the others, so
	// outcomes travel in out rather than as errors.
	var g errgroup.Group
	for i, addr := range addrs {
		g.Go(func() error {
			out[i] = bindOne(ctx, addr, handler, log)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func bindOne(ctx context.Context, addr netip.AddrPort, handler http.Handler, log *zap.Logger) Binding {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr.String())
	if err != nil {
		metrics.BindErrorsTotal.Inc()
		log.Error("bind failed", zap.Stringer("addr", addr), zap.Error(err))
		return Binding{Addr: addr, Err: &BindError{Addr: addr, Err: err}}
	}

	metrics.ListenersBound.Inc()
	log.Info("bound", zap.Stringer("addr", addr), zap.Stringer("local", ln.Addr()))
	return Binding{
		Addr: addr,
		Bound: &Bound{
			Addr:     ln.Addr(),
			Listener: ln,
			Server:   New(handler, log),
		},
	}
}

// Collect turns per-address outcomes into a go/no-go decision.  When any
// address failed, every successfully bound listener is closed and the
// combined errors are returned in input order.
func Collect(bindings []Binding) ([]*Bound, error) {
	if len(bindings) == 0 {
		return nil, ErrNoAddresses
	}

	var (
		errs  error
		bound = make([]*Bound, 0, len(bindings))
	)
	for _, b := range bindings {
		if b.Err != nil {
			errs = multierr.Append(errs, b.Err)
			continue
		}
		bound = append(bound, b.Bound)
	}

	if errs != nil {
		for _, b := range bound {
			_ = b.Close()
		}
		return nil, errs
	}
	return bound, nil
}

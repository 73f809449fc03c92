// Package resolve turns a configured host and port into socket addresses.
//
// Lookups go through a context-aware resolver so a slow DNS server only
// parks the calling goroutine.  IP literals never touch the resolver.  Every
// candidate is logged so each later bind attempt can be traced back to the
// lookup that produced it.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"go.uber.org/zap"
)

// ErrAddrNotAvailable is returned when a lookup yields no candidates.
var ErrAddrNotAvailable = errors.New("address not available")

// Error reports a failed lookup for Host.
type Error struct {
	Host string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("resolve %q: %v", e.Host, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Resolver is satisfied by *net.Resolver.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Resolve looks up host with net.DefaultResolver.
func Resolve(ctx context.Context, host string, port uint16, log *zap.Logger) ([]netip.AddrPort, error) {
	return With(ctx, net.DefaultResolver, host, port, log)
}

// HostPort resolves a "host:port" listen address.  An empty host, as in
// ":9100", means every IPv4 interface.
func HostPort(ctx context.Context, hostport string, log *zap.Logger) ([]netip.AddrPort, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, &Error{Host: hostport, Err: err}
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, &Error{Host: hostport, Err: fmt.Errorf("port %q: %w", portStr, err)}
	}
	if host == "" {
		host = netip.IPv4Unspecified().String()
	}
	return Resolve(ctx, host, uint16(port), log)
}

// With looks up host using r and pairs every distinct address with port.
func With(ctx context.Context, r Resolver, host string, port uint16, log *zap.Logger) ([]netip.AddrPort, error) {
	log.Info("retrieving socket addresses", zap.String("host", host), zap.Uint16("port", port))

	var ips []netip.Addr
	if ip, err := netip.ParseAddr(host); err == nil {
		ips = []netip.Addr{ip}
	} else {
		found, err := r.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, &Error{Host: host, Err: err}
		}
		ips = found
	}

	seen := make(map[netip.AddrPort]struct{}, len(ips))
	out := make([]netip.AddrPort, 0, len(ips))
	for _, ip := range ips {
		ap := netip.AddrPortFrom(ip.Unmap(), port)
		if _, dup := seen[ap]; dup {
			continue
		}
		seen[ap] = struct{}{}
		out = append(out, ap)
		log.Info("using address", zap.Stringer("addr", ap))
	}

	if len(out) == 0 {
		return nil, &Error{Host: host, Err: ErrAddrNotAvailable}
	}
	return out, nil
}

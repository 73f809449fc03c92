// internal/vault/vault.go
//
// HashiCorp Vault lookups for secret references in configuration.
//
// Context
// -------
//   - A config value of the form `vault:<mount>/<path>#<key>` names a field
//     of a KV-v2 secret instead of carrying the secret itself.  Resolve
//     swaps such a reference for the stored value once configuration is
//     fully merged; any other value passes through untouched.
//   - The client reads VAULT_ADDR and VAULT_TOKEN and keeps its token alive
//     in the background until the context ends.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, log)               // only when a ref exists.
//  2. val, err := cli.Lookup(ctx, ref)              // anywhere after that.
//
// or, for a single config field:
//
//	pw, err := vault.Resolve(ctx, cfg.Postgres.Password, log)
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/yanizio/fantasia/internal/config"
)

// RefPrefix marks a config value as a Vault reference.
const RefPrefix = "vault:"

// ErrBadRef is returned for a value that starts with RefPrefix but does not
// name a mount, path, and key.
var ErrBadRef = errors.New("malformed vault reference")

//
// SECTION 1.  References
//

// Ref points at one key of a KV-v2 secret.
type Ref struct {
	Path string // <mount>/<path>
	Key  string
}

func (r Ref) String() string { return RefPrefix + r.Path + "#" + r.Key }

// IsRef reports whether s is meant as a Vault reference.
func IsRef(s string) bool { return strings.HasPrefix(s, RefPrefix) }

// ParseRef parses `vault:<mount>/<path>#<key>`.
func ParseRef(s string) (Ref, error) {
	if !IsRef(s) {
		return Ref{}, fmt.Errorf("%w: missing %q prefix", ErrBadRef, RefPrefix)
	}
	path, key, ok := strings.Cut(strings.TrimPrefix(s, RefPrefix), "#")
	if !ok || key == "" {
		return Ref{}, fmt.Errorf("%w: missing #key", ErrBadRef)
	}
	if mount, rel := splitMount(path); mount == "" || rel == "" {
		return Ref{}, fmt.Errorf("%w: want <mount>/<path>, got %q", ErrBadRef, path)
	}
	return Ref{Path: path, Key: key}, nil
}

// Resolve returns s unchanged unless it is a Vault reference, in which case
// the referenced value is fetched.  The client's renewal loop lives as long
// as ctx.
func Resolve(ctx context.Context, s config.Secret, log *zap.Logger) (config.Secret, error) {
	if !IsRef(s.Expose()) {
		return s, nil
	}
	ref, err := ParseRef(s.Expose())
	if err != nil {
		return "", err
	}

	cli, err := New(ctx, log)
	if err != nil {
		return "", err
	}
	val, err := cli.Lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	log.Info("resolved secret from vault", zap.Stringer("ref", ref))
	return config.Secret(val), nil
}

//
// SECTION 2.  Client
//

var (
	// ErrKeyMissing means the secret exists but has no such key.
	ErrKeyMissing = errors.New("key not in secret")
	// ErrNotString means the key holds a non-string value.
	ErrNotString = errors.New("value is not a string")
)

// LookupError reports a failed read of Ref.
type LookupError struct {
	Ref Ref
	Err error
}

func (e *LookupError) Error() string { return fmt.Sprintf("vault lookup %s: %v", e.Ref, e.Err) }
func (e *LookupError) Unwrap() error { return e.Err }

// Client is safe for concurrent use.  The zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.Logger
}

// New builds a client from VAULT_ADDR, VAULT_TOKEN, and the other standard
// VAULT_* variables, then keeps its token renewed until ctx ends.
func New(ctx context.Context, log *zap.Logger) (*Client, error) {
	cfg := vault.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault config: %w", cfg.Error)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}

	c := &Client{api: api, log: log.Named("vault")}
	go c.renewLoop(ctx)
	return c, nil
}

// Lookup reads ref from its KV-v2 mount.  Every call goes to Vault.
func (c *Client) Lookup(ctx context.Context, ref Ref) (string, error) {
	mount, rel := splitMount(ref.Path)
	kv, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", &LookupError{Ref: ref, Err: err}
	}

	raw, ok := kv.Data[ref.Key]
	if !ok {
		return "", &LookupError{Ref: ref, Err: ErrKeyMissing}
	}
	val, ok := raw.(string)
	if !ok {
		return "", &LookupError{Ref: ref, Err: ErrNotString}
	}
	return val, nil
}

//
// SECTION 3.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Debug("token renew-self failed", zap.Error(err))
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Debug("token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.log.Warn("lifetime watcher init", zap.Error(err))
			backoff(ctx, 30*time.Second)
			continue
		}

		c.watch(ctx, w)
		backoff(ctx, 15*time.Second)
	}
}

// watch runs w until it stops or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warn("token renewal stopped", zap.Error(err))
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debug("token renewed", zap.Int("ttl_seconds", ev.Secret.Auth.LeaseDuration))
			}
		}
	}
}

//
// SECTION 4.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

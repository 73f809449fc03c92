package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	loopback = netip.MustParseAddrPort("127.0.0.1:0")
	okay     = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
)

func get(t *testing.T, addr net.Addr) *http.Response {
	t.Helper()
	c := &http.Client{Timeout: 5 * time.Second}
	resp, err := c.Get("http://" + addr.String() + "/")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	return resp
}

func TestNew_Timeouts(t *testing.T) {
	s := New(okay, zap.NewNop())
	assert.Equal(t, ReadHeaderTimeout, s.ReadHeaderTimeout)
	assert.Equal(t, WriteTimeout, s.WriteTimeout)
	assert.Equal(t, IdleTimeout, s.IdleTimeout)
	assert.Greater(t, s.WriteTimeout, 30*time.Second)
	assert.NotNil(t, s.ErrorLog)
}

func TestBindRun_TwoListeners(t *testing.T) {
	bindings := Bind(context.Background(), []netip.AddrPort{loopback, loopback}, okay, zap.NewNop())
	servers, err := Collect(bindings)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.NotEqual(t, servers[0].Addr.String(), servers[1].Addr.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, servers, zap.NewNop()) }()

	for _, s := range servers {
		assert.Equal(t, http.StatusOK, get(t, s.Addr).StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Run did not return after cancel")
	}

	for _, s := range servers {
		_, err := net.DialTimeout("tcp", s.Addr.String(), time.Second)
		assert.Error(t, err, "listener %s still open", s.Addr)
	}
}

func TestBind_PartialFailureReportedPerAddress(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()
	busy := netip.MustParseAddrPort(taken.Addr().String())

	core, logs := observer.New(zap.InfoLevel)
	bindings := Bind(context.Background(), []netip.AddrPort{busy, loopback}, okay, zap.New(core))
	require.Len(t, bindings, 2)

	var berr *BindError
	require.True(t, errors.As(bindings[0].Err, &berr))
	assert.Equal(t, busy, berr.Addr)
	assert.Nil(t, bindings[0].Bound)

	require.NoError(t, bindings[1].Err)
	good := bindings[1].Bound.Addr.String()
	assert.Equal(t, 1, logs.FilterMessage("bind failed").Len())

	servers, err := Collect(bindings)
	assert.Nil(t, servers)
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, busy, berr.Addr)

	_, err = net.DialTimeout("tcp", good, time.Second)
	assert.Error(t, err, "successful listener should be closed after an aborted bind")
}

func TestCollect_Empty(t *testing.T) {
	_, err := Collect(nil)
	require.ErrorIs(t, err, ErrNoAddresses)
}

func TestBound_CloseTwice(t *testing.T) {
	bindings := Bind(context.Background(), []netip.AddrPort{loopback}, okay, zap.NewNop())
	require.NoError(t, bindings[0].Err)

	b := bindings[0].Bound
	require.NoError(t, b.Close())
	assert.Error(t, b.Close())
}

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServer_StartServesMetricsAndStopShutsDown(t *testing.T) {
	reg := NewRegistry()
	reg.RxMessageTotal.WithLabelValues("p1").Inc()

	addr := freeAddr(t)
	s := NewServer(addr, "/metrics", reg)

	require.NoError(t, s.Start(context.Background()))

	url := fmt.Sprintf("http://%s/metrics", addr)
	var resp *http.Response
	var err error
	assert.Eventually(t, func() bool {
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestServer_DefaultsPathToSlash(t *testing.T) {
	s := NewServer("127.0.0.1:0", "", NewRegistry())
	assert.Equal(t, "/", s.path)
}

func TestServer_StopBeforeStartIsNoop(t *testing.T) {
	s := NewServer("127.0.0.1:0", "/metrics", NewRegistry())
	assert.NoError(t, s.Stop(context.Background()))
}

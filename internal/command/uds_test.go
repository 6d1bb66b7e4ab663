package command

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDSServerClient_StatusRoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "test.sock")
	sup := &fakeSupervisor{status: Status{Pipelines: []string{"p1"}}}
	handler := NewCommandHandler(sup, "1.0.0")
	server := NewUDSServer(socketPath, handler)

	ctx, cancel := context.WithCancel(context.Background())
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start(ctx) }()

	require.Eventually(t, func() bool {
		_, err := NewUDSClient(socketPath, time.Second).Status(context.Background())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	client := NewUDSClient(socketPath, time.Second)
	resp, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	cancel()
	<-serverErr
}

func TestUDSServerClient_StopIsIdempotent(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "test.sock")
	handler := NewCommandHandler(&fakeSupervisor{}, "1.0.0")
	server := NewUDSServer(socketPath, handler)

	ctx, cancel := context.WithCancel(context.Background())
	go server.Start(ctx)
	cancel()

	assert.NoError(t, server.Stop())
	assert.NoError(t, server.Stop())
}

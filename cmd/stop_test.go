package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edgeiot/zeppelin/internal/command"
)

func TestRunStop_Success(t *testing.T) {
	client := &mockClient{}
	client.On("Stop", mock.Anything).Return(&command.Response{ID: "1"}, nil)

	var buf bytes.Buffer
	err := runStop(context.Background(), client, &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "stopping")
	client.AssertExpectations(t)
}

func TestRunStop_DaemonError(t *testing.T) {
	client := &mockClient{}
	client.On("Stop", mock.Anything).Return(&command.Response{
		ID:    "1",
		Error: &command.ErrorInfo{Code: command.ErrCodeInternalError, Message: "busy"},
	}, nil)

	err := runStop(context.Background(), client, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")
}

func TestRunStop_TransportError(t *testing.T) {
	client := &mockClient{}
	client.On("Stop", mock.Anything).Return(nil, assert.AnError)

	err := runStop(context.Background(), client, &bytes.Buffer{})

	require.Error(t, err)
}

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

func TestRunStatus_PrintsResultAsJSON(t *testing.T) {
	client := &mockClient{}
	client.On("Status", mock.Anything).Return(&command.Response{
		ID:     "1",
		Result: map[string]interface{}{"pipelines": []interface{}{"camera-feed"}},
	}, nil)

	var buf bytes.Buffer
	err := runStatus(context.Background(), client, &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "camera-feed")
	client.AssertExpectations(t)
}

func TestRunStatus_DaemonError(t *testing.T) {
	client := &mockClient{}
	client.On("Status", mock.Anything).Return(&command.Response{
		ID:    "1",
		Error: &command.ErrorInfo{Code: command.ErrCodeInternalError, Message: "not ready"},
	}, nil)

	err := runStatus(context.Background(), client, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestRunStatus_TransportError(t *testing.T) {
	client := &mockClient{}
	client.On("Status", mock.Anything).Return(nil, assert.AnError)

	err := runStatus(context.Background(), client, &bytes.Buffer{})

	require.Error(t, err)
}

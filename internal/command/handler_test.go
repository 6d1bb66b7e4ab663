package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSupervisor struct {
	status    Status
	reloadErr error
	stopped   bool
}

func (f *fakeSupervisor) Status() Status { return f.status }
func (f *fakeSupervisor) Reload() error  { return f.reloadErr }
func (f *fakeSupervisor) Stop()          { f.stopped = true }

func TestHandler_Status(t *testing.T) {
	sup := &fakeSupervisor{status: Status{Pipelines: []string{"p1", "p2"}}}
	h := NewCommandHandler(sup, "1.0.0")

	resp := h.Handle(context.Background(), Command{Method: "status", ID: "1"})
	require.Nil(t, resp.Error)
	s, ok := resp.Result.(Status)
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "p2"}, s.Pipelines)
	assert.Equal(t, "1.0.0", s.Version)
}

func TestHandler_Reload_Success(t *testing.T) {
	sup := &fakeSupervisor{}
	h := NewCommandHandler(sup, "1.0.0")

	resp := h.Handle(context.Background(), Command{Method: "reload", ID: "1"})
	assert.Nil(t, resp.Error)
}

func TestHandler_Reload_Failure(t *testing.T) {
	sup := &fakeSupervisor{reloadErr: assertError("boom")}
	h := NewCommandHandler(sup, "1.0.0")

	resp := h.Handle(context.Background(), Command{Method: "reload", ID: "1"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInternalError, resp.Error.Code)
}

func TestHandler_UnknownMethod(t *testing.T) {
	sup := &fakeSupervisor{}
	h := NewCommandHandler(sup, "1.0.0")

	resp := h.Handle(context.Background(), Command{Method: "nonsense", ID: "1"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

type assertError string

func (e assertError) Error() string { return string(e) }

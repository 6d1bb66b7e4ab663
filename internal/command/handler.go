// Package command implements the control plane (A4): a CommandHandler
// dispatching status/reload/stop over a UDS socket and, optionally, a
// Kafka remote command channel. Grounded on the teacher's
// internal/command package (JSON-RPC-over-UDS handler, Kafka consumer)
// with its task-CRUD surface narrowed to the three verbs spec.md's CLI
// exposes.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edgeiot/zeppelin/internal/log"
)

// Supervisor is the narrow surface CommandHandler drives: the daemon's
// pipeline-set lifecycle, kept here rather than importing internal/daemon
// directly to avoid a daemon<->command import cycle.
type Supervisor interface {
	Status() Status
	Reload() error
	Stop()
}

// Status is the daemon_status / daemon_stats result shape.
type Status struct {
	Pipelines []string `json:"pipelines"`
	UptimeSec int64    `json:"uptime_sec"`
	Version   string   `json:"version"`
}

// Command is one control-plane request.
type Command struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     string          `json:"id"`
}

// Response is one control-plane reply.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo mirrors the JSON-RPC 2.0 error object shape.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeParseError     = -32700
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
)

// CommandHandler routes Command.Method to a Supervisor operation.
type CommandHandler struct {
	supervisor Supervisor
	startTime  time.Time
	version    string
}

func NewCommandHandler(supervisor Supervisor, version string) *CommandHandler {
	return &CommandHandler{supervisor: supervisor, startTime: time.Now(), version: version}
}

// Handle processes one Command and returns its Response. No method ever
// panics or returns an unhandled error upward; every failure is converted
// into a Response.Error.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Response {
	log.GetLogger().WithField("method", cmd.Method).WithField("id", cmd.ID).Info("handling control command")

	switch cmd.Method {
	case "status":
		return h.handleStatus(cmd)
	case "reload":
		return h.handleReload(cmd)
	case "stop":
		return h.handleStop(cmd)
	default:
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("method %q not found", cmd.Method),
			},
		}
	}
}

func (h *CommandHandler) handleStatus(cmd Command) Response {
	s := h.supervisor.Status()
	s.UptimeSec = int64(time.Since(h.startTime).Seconds())
	s.Version = h.version
	return Response{ID: cmd.ID, Result: s}
}

func (h *CommandHandler) handleReload(cmd Command) Response {
	if err := h.supervisor.Reload(); err != nil {
		return Response{ID: cmd.ID, Error: &ErrorInfo{Code: ErrCodeInternalError, Message: err.Error()}}
	}
	return Response{ID: cmd.ID, Result: "reloaded"}
}

func (h *CommandHandler) handleStop(cmd Command) Response {
	go h.supervisor.Stop()
	return Response{ID: cmd.ID, Result: "stopping"}
}

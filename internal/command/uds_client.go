package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// UDSClient talks the same one-JSON-object-per-line framing UDSServer
// speaks, grounded on the teacher's internal/command/uds_client.go dial/
// encode/scan/decode shape.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
}

func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &UDSClient{socketPath: socketPath, timeout: timeout}
}

// Call sends method (with no params, since spec.md's CLI surface needs
// none) and waits for one Response line.
func (c *UDSClient) Call(ctx context.Context, method string) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("uds client: connect to %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	reqID := fmt.Sprintf("req-%d", time.Now().UnixNano())
	if err := json.NewEncoder(conn).Encode(Command{Method: method, ID: reqID}); err != nil {
		return nil, fmt.Errorf("uds client: send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("uds client: read response: %w", err)
		}
		return nil, fmt.Errorf("uds client: connection closed without response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("uds client: parse response: %w", err)
	}
	return &resp, nil
}

func (c *UDSClient) Status(ctx context.Context) (*Response, error) { return c.Call(ctx, "status") }
func (c *UDSClient) Reload(ctx context.Context) (*Response, error) { return c.Call(ctx, "reload") }
func (c *UDSClient) Stop(ctx context.Context) (*Response, error)   { return c.Call(ctx, "stop") }

package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/edgeiot/zeppelin/internal/log"
)

// UDSServer is a JSON-RPC-over-newline server on a Unix domain socket,
// grounded on the teacher's internal/command/uds_server.go verbatim
// framing (one JSON object per line, in and out).
type UDSServer struct {
	socketPath string
	handler    *CommandHandler
	listener   net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	stopped bool
}

func NewUDSServer(socketPath string, handler *CommandHandler) *UDSServer {
	return &UDSServer{socketPath: socketPath, handler: handler, conns: make(map[net.Conn]struct{})}
}

// Start listens and serves until ctx is cancelled, then calls Stop itself.
func (s *UDSServer) Start(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("uds server: remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("uds server: listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("uds server: chmod socket: %w", err)
	}

	log.GetLogger().WithField("socket", s.socketPath).Info("uds control server started")
	go s.acceptLoop(ctx)

	<-ctx.Done()
	return s.Stop()
}

func (s *UDSServer) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			log.GetLogger().WithError(err).Warn("uds server: accept failed")
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *UDSServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			encoder.Encode(Response{Error: &ErrorInfo{Code: ErrCodeParseError, Message: err.Error()}})
			continue
		}

		resp := s.handler.Handle(ctx, cmd)
		if err := encoder.Encode(resp); err != nil {
			log.GetLogger().WithError(err).Warn("uds server: write response failed")
			return
		}
	}
}

// Stop closes the listener and every open connection. Idempotent.
func (s *UDSServer) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	os.RemoveAll(s.socketPath)

	log.GetLogger().Info("uds control server stopped")
	return nil
}

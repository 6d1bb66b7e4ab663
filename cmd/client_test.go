package cmd

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edgeiot/zeppelin/internal/command"
)

// mockClient is a testify mock double for daemonClient, following the
// teacher's own cmd/ package test texture (mock.Mock over a hand-rolled
// fake), unlike the rest of this module's package tests which use
// hand-rolled fakes directly.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) Status(ctx context.Context) (*command.Response, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*command.Response)
	return resp, args.Error(1)
}

func (m *mockClient) Reload(ctx context.Context) (*command.Response, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*command.Response)
	return resp, args.Error(1)
}

func (m *mockClient) Stop(ctx context.Context) (*command.Response, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*command.Response)
	return resp, args.Error(1)
}

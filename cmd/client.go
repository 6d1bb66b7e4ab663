package cmd

import (
	"context"

	"github.com/edgeiot/zeppelin/internal/command"
)

// daemonClient is the narrow surface every control subcommand needs;
// *command.UDSClient satisfies it structurally. Tests substitute a fake.
type daemonClient interface {
	Status(ctx context.Context) (*command.Response, error)
	Reload(ctx context.Context) (*command.Response, error)
	Stop(ctx context.Context) (*command.Response, error)
}

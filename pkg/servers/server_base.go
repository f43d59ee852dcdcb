package servers

import (
	"context"
	"sync"

	"github.com/qmdx00/lifecycle"
	"github.com/rs/zerolog/log"

	"github.com/adonini/LST-onsite-availability/pkg/resources"
)

// baseServer keeps the application alive and closes shared resources
// when it stops.
type baseServer struct {
	ctx          context.Context //nolint:containedctx
	name         string
	closeOnce    sync.Once
	closeChannel chan struct{}
	closables    []resources.Closable
}

func BuildBaseServer(closables ...resources.Closable) (string, Server) {
	return "base-server", NewBaseServer(closables...)
}

func NewBaseServer(closables ...resources.Closable) lifecycle.Server {
	return &baseServer{
		name:         "base-server",
		closeChannel: make(chan struct{}),
		closables:    closables,
	}
}

func (server *baseServer) Run(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("stage", "startup").Str("component", server.name).Msg("starting up")

	server.ctx = ctx
	<-server.closeChannel

	return nil
}

func (server *baseServer) Stop(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", server.name).Msg("stopping")
	defer log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", server.name).Msg("stopped")

	server.closeOnce.Do(func() {
		// release in reverse order of acquisition
		for i := len(server.closables) - 1; i >= 0; i-- {
			server.closables[i].Close()
		}

		close(server.closeChannel)
	})

	return nil
}

package servers

import (
	"context"
	"sync"

	"github.com/qmdx00/lifecycle"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type cronServer struct {
	name         string
	internal     CronServer
	closeOnce    sync.Once
	closeChannel chan struct{}
}

// BuildCronServer runs job on the given cron expression inside a lifecycle server.
func BuildCronServer(name string, schedule string, job cron.Job) (string, Server, error) {
	scheduler := cron.New()

	_, err := scheduler.AddJob(schedule, job)
	if err != nil {
		return name, nil, ErrJobFailedToSchedule(name, schedule, err)
	}

	return name, NewCronServer(name, scheduler), nil
}

func NewCronServer(name string, scheduler CronServer) lifecycle.Server {
	return &cronServer{
		name:         name,
		internal:     scheduler,
		closeChannel: make(chan struct{}),
	}
}

func (server *cronServer) Run(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("stage", "startup").Str("component", server.name).Msg("starting up")

	server.internal.Start()
	<-server.closeChannel

	return nil
}

func (server *cronServer) Stop(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", server.name).Msg("stopping")
	defer log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", server.name).Msg("stopped")

	server.closeOnce.Do(func() { close(server.closeChannel) })

	// wait for running jobs unless the shutdown deadline comes first
	select {
	case <-server.internal.Stop().Done():
		return nil
	case <-ctx.Done():
		log.Ctx(ctx).Error().Str("stage", "shut down").Str("component", server.name).Err(ctx.Err()).Msg("failed to stop")
		return ErrServerFailedToStop(server.name, ctx.Err())
	}
}

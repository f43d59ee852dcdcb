package servers

import (
	"context"
	"net/http"

	"github.com/qmdx00/lifecycle"
	"github.com/robfig/cron/v3"
)

var (
	_ Server = (*baseServer)(nil)
	_ Server = (*httpServer)(nil)
	_ Server = (*cronServer)(nil)
)

type Server interface {
	lifecycle.Server
}

var (
	_ CronServer = (*cron.Cron)(nil)
)

type CronServer interface {
	Start()
	Stop() context.Context
}

//

var (
	_ Application = (*lifecycle.App)(nil)
)

type Application interface {
	ID() string
	Name() string
	Version() string
	Metadata() map[string]string
	Attach(name string, server lifecycle.Server)
	Run() error
}

//

var (
	_ BuildHttpServerFn = BuildHttpServer
	_ BuildCronServerFn = BuildCronServer
)

type BuildHttpServerFn func(name string, server *http.Server) (string, Server)

type BuildCronServerFn func(name string, schedule string, job cron.Job) (string, Server, error)

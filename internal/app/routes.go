package app

import (
	"github.com/gorilla/mux"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/handler/rest"
	"github.com/webitel/bot-report-exporter/internal/server/interceptor"
)

// routeRegistration initializes one handler group and mounts it on the router.
type routeRegistration struct {
	init func(*App) (registrar, error)
	name string
}

type registrar interface {
	Register(r *mux.Router)
}

// RegisterRoutes initializes and mounts all HTTP handlers.
func RegisterRoutes(router *mux.Router, appInstance *App) error {
	routes := []routeRegistration{
		{
			init: func(a *App) (registrar, error) {
				return rest.NewReportHandler(a.Service, interceptor.NewErrorResponder(a.translate, a.log))
			},
			name: "Report",
		},
	}

	for _, route := range routes {
		h, err := route.init(appInstance)
		if err != nil {
			return errors.New("failed to init "+route.name+" routes", errors.WithCause(err))
		}
		h.Register(router)
		appInstance.log.Info("routes registered", "group", route.name)
	}
	return nil
}

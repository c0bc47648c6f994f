package internal

import (
	"net/http"
	"perimeterd/internal/controllers"
	"perimeterd/internal/providers"
)

func InitRoutes(commandController *controllers.CommandController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/command", http.HandlerFunc(commandController.Command))
	routers.Post("/tripwire", http.HandlerFunc(commandController.Tripwire))
	routers.Get("/status", http.HandlerFunc(commandController.Status))
	return routers
}

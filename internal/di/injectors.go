//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"perimeterd/internal"
	"perimeterd/internal/bridge"
	"perimeterd/internal/controllers"
	"perimeterd/internal/directory"
	"perimeterd/internal/perimeter"
	"perimeterd/internal/providers"
	"perimeterd/internal/scheduler"
	"perimeterd/internal/services"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
)

var hostSet = wire.NewSet(
	bridge.NewClient,
	wire.Bind(new(perimeter.Player), new(*bridge.Client)),
	wire.Bind(new(perimeter.Voice), new(*bridge.Client)),
	wire.Bind(new(perimeter.Messenger), new(*bridge.Client)),
	directory.NewRadioBrowser,
	wire.Bind(new(perimeter.StationDirectory), new(*directory.RadioBrowser)),
)

var perimeterSet = wire.NewSet(
	perimeter.NewMatcher,
	perimeter.NewGraces,
	perimeter.NewAuditor,
	perimeter.NewNotifier,
	perimeter.NewGate,
	perimeter.NewSnapshotEngine,
	perimeter.NewPosture,
	perimeter.NewWatchdog,
	perimeter.NewReassurance,
	perimeter.NewTripwire,
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewEventPublisher,

		store.NewZstdCompressor,
		store.NewFileManager,
		store.NewFileStore,
		store.NewPostureSource,

		hostSet,
		perimeterSet,

		services.NewStationService,
		services.NewCommandService,
		scheduler.NewScheduler,
		controllers.NewCommandController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

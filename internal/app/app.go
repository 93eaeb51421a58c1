package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/handlers"
	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/services/assistant"
	"github.com/ternarybob/voyager/internal/services/events"
	"github.com/ternarybob/voyager/internal/services/llm"
	"github.com/ternarybob/voyager/internal/services/places"
	"github.com/ternarybob/voyager/internal/services/realtime"
	"github.com/ternarybob/voyager/internal/services/resolver"
	"github.com/ternarybob/voyager/internal/services/trips"
	badgerstore "github.com/ternarybob/voyager/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService interfaces.EventService
	Bridge       *realtime.Bridge

	// Provider clients
	LLMService    interfaces.LLMService
	PlacesService interfaces.PlacesService

	// Domain services
	ResolverService  *resolver.Service
	ResolverSweeper  *resolver.Sweeper
	TripService      *trips.Service
	AssistantService *assistant.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	TripHandler      *handlers.TripHandler
	AssistantHandler *handlers.AssistantHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Str("default_provider", string(cfg.LLM.DefaultProvider)).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)
	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to subscribe event logger")
	}

	a.LLMService = llm.NewService(a.Config, a.StorageManager.KeyValueStorage(), a.Logger)
	if err := a.LLMService.HealthCheck(context.Background()); err != nil {
		a.Logger.Warn().Err(err).Msg("LLM service health check failed - turns will fail until a valid API key is provided")
		a.Logger.Info().Msg("Set VOYAGER_GEMINI_API_KEY or gemini.api_key in config to enable the assistant")
	} else {
		a.Logger.Debug().Msg("LLM service initialized and health check passed")
	}

	a.PlacesService = places.NewService(&a.Config.PlacesAPI, a.StorageManager, a.Logger)
	a.Logger.Debug().Msg("Places service initialized")

	a.ResolverService = resolver.NewService(
		&a.Config.Resolver,
		a.StorageManager.PlaceCacheStorage(),
		a.PlacesService,
		a.Logger,
	)
	a.Logger.Debug().Msg("Resolver service initialized")

	a.ResolverSweeper = resolver.NewSweeper(
		a.Config.Resolver.SweepSchedule,
		a.StorageManager.PlaceCacheStorage(),
		a.Logger,
	)
	if err := a.ResolverSweeper.Start(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to start cache sweeper")
	} else {
		a.Logger.Debug().Str("schedule", a.Config.Resolver.SweepSchedule).Msg("Cache sweeper started")
	}

	a.TripService = trips.NewService(
		&a.Config.Assistant,
		a.StorageManager,
		a.EventService,
		a.Logger,
	)
	a.Logger.Debug().Msg("Trip service initialized")

	a.AssistantService = assistant.NewService(
		&a.Config.Assistant,
		a.StorageManager,
		a.LLMService,
		a.ResolverService,
		a.TripService,
		a.EventService,
		a.Logger,
	)
	a.Logger.Debug().Msg("Assistant service initialized")

	a.Bridge = realtime.NewBridge(a.StorageManager, a.EventService, a.Logger)
	a.Logger.Debug().Msg("Realtime bridge initialized")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	a.TripHandler = handlers.NewTripHandler(a.TripService, a.StorageManager, a.Logger)
	a.AssistantHandler = handlers.NewAssistantHandler(a.AssistantService, a.LLMService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.Bridge, a.EventService, a.Logger, &a.Config.WebSocket)

	a.Logger.Debug().
		Int("allowed_events", len(a.Config.WebSocket.AllowedEvents)).
		Int("throttle_intervals", len(a.Config.WebSocket.ThrottleIntervals)).
		Msg("HTTP handlers initialized")

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.ResolverSweeper != nil {
		a.ResolverSweeper.Stop()
		a.Logger.Info().Msg("Cache sweeper stopped")
	}

	if a.Bridge != nil {
		if err := a.Bridge.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close realtime bridge")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		} else {
			a.Logger.Info().Msg("LLM service closed")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

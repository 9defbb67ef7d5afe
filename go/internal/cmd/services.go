package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/planningpoker/go/internal/auth"
	"github.com/mcdev12/planningpoker/go/internal/events"
	"github.com/mcdev12/planningpoker/go/internal/gateway"
	"github.com/mcdev12/planningpoker/go/internal/rooms"
	"github.com/mcdev12/planningpoker/go/internal/users"
	"github.com/mcdev12/planningpoker/go/internal/voting"
)

type Services struct {
	Users   *users.Service
	Rooms   *rooms.Service
	Gateway *gateway.WebSocketHandler

	Manager   *gateway.ConnectionManager
	Hub       *gateway.Hub
	Publisher events.Publisher
}

func setupServices(database *sql.DB, config *Config, publisher events.Publisher) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()
	tokens := auth.NewTokenService()

	// Live voting state
	registry := voting.NewRegistry(clock)
	directory := voting.NewDirectory(registry)
	scheduler := voting.NewScheduler(clock)

	// Users
	userRepo := users.NewRepository(database)
	userApp := users.NewApp(userRepo)
	userService := users.NewService(userApp, tokens)

	// Rooms; deleting a room also drops its live session
	roomRepo := rooms.NewRepository(database)
	roomApp := rooms.NewApp(roomRepo, registry)
	roomService := rooms.NewService(roomApp, tokens)

	// Websocket gateway
	cmConfig := gateway.DefaultConnectionConfig()
	cmConfig.WriteTimeout = config.writeTimeout()
	cmConfig.ReadTimeout = config.readTimeout()
	cmConfig.PingInterval = config.pingInterval()
	if config.Websocket.MaxMessageSize > 0 {
		cmConfig.MaxMessageSize = config.Websocket.MaxMessageSize
	}
	manager := gateway.NewConnectionManager(cmConfig)
	hub := gateway.NewHub(registry, directory, scheduler, manager, tokens, roomApp, publisher)
	manager.SetHandler(hub)

	return &Services{
		Users:     userService,
		Rooms:     roomService,
		Gateway:   gateway.NewWebSocketHandler(manager),
		Manager:   manager,
		Hub:       hub,
		Publisher: publisher,
	}
}

package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/couchplay/roomsync/go/internal/broadcast"
	"github.com/couchplay/roomsync/go/internal/gateway"
	"github.com/couchplay/roomsync/go/internal/registry"
	"github.com/couchplay/roomsync/go/internal/session"
)

type Services struct {
	Registry *registry.Repository
	Bus      broadcast.Bus
	Gateway  *gateway.Handler
}

func setupServices(pool *pgxpool.Pool, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → Gateway layer

	store := registry.NewPGStore(pool)
	repo := registry.NewRepository(store)

	natsConfig := broadcast.DefaultNATSConfig()
	natsConfig.URL = getEnv("NATS_URL", natsConfig.URL)
	bus, err := broadcast.NewNATSBus(natsConfig)
	if err != nil {
		return nil, err
	}

	sessionConfig := session.DefaultConfig()
	sessionConfig.TurnTimeout = config.turnTimeout()
	sessionConfig.MaxSkips = config.Session.MaxSkips

	handler := gateway.NewHandler(repo, bus, clockwork.NewRealClock(), sessionConfig, gateway.DefaultConfig())

	return &Services{
		Registry: repo,
		Bus:      bus,
		Gateway:  handler,
	}, nil
}

func (s *Services) Close() {
	s.Bus.Close()
}

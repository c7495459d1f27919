package rules

import (
	"fmt"
	"sync"
)

var (
	registry   = make(map[string]Engine)
	registryMu sync.RWMutex
)

// Register adds an engine implementation under its game type key.
// It should be called in each game package's init() function.
func Register(engine Engine) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	key := engine.GameType()
	if key == "" {
		return fmt.Errorf("engine game type cannot be empty")
	}
	if _, exists := registry[key]; exists {
		return fmt.Errorf("engine already registered for game type %q", key)
	}
	registry[key] = engine
	return nil
}

// Get retrieves an engine by game type or returns an error if not found.
func Get(gameType string) (Engine, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	engine, exists := registry[gameType]
	if !exists {
		return nil, fmt.Errorf("no rule engine registered for game type %q", gameType)
	}
	return engine, nil
}

// GameTypes lists the registered game type keys.
func GameTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	return keys
}

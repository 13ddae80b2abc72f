// Package storage is the persistent local key-value store linear-task keeps
// its credential and last-used selections in.
//
// Values are stored JSON-encoded. Loading a key that was never saved reports
// found=false and no error; backend failures are returned to the caller as is.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roeyazroel/linear-task/internal/config"
)

// Well-known keys.
const (
	KeyAPIKey         = "linearApiKey"
	KeyLastProjectID  = "lastProjectId"
	KeyLastAssigneeID = "lastAssigneeId"
	KeyLastTeamID     = "lastTeamId"
	KeyLastStateID    = "lastStateId"
)

// Store is a persistent key-value store.
type Store interface {
	// Save writes value under key, overwriting any previous value.
	Save(ctx context.Context, key string, value interface{}) error
	// Load decodes the value under key into dst. found is false when the key
	// has never been saved; dst is left untouched in that case.
	Load(ctx context.Context, key string, dst interface{}) (found bool, err error)
	// Close releases backend resources.
	Close() error
}

// LoadString loads a string value.
func LoadString(ctx context.Context, s Store, key string) (string, bool, error) {
	var value string
	found, err := s.Load(ctx, key, &value)
	if err != nil || !found {
		return "", false, err
	}
	return value, true, nil
}

// Open creates the store selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func encode(key string, value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value for key %s: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, dst interface{}) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode value for key %s: %w", key, err)
	}
	return nil
}

// Package shopifytwin assembles the Shopify twin: in-memory state, the
// /admin REST API and the /_admin control plane on one twincore server.
package shopifytwin

import (
	"fmt"
	"os"

	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/api"
	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
	"github.com/wondertwin-ai/shopkit/pkg/admin"
	"github.com/wondertwin-ai/shopkit/pkg/twincore"
)

// Name is the twin's name in logs.
const Name = "twin-shopify"

// DefaultPort is used when neither -port nor PORT is set.
const DefaultPort = 12112

// Twin is a ready-to-serve Shopify twin.
type Twin struct {
	*twincore.Twin
	Store *store.MemoryStore
}

// New builds a twin seeded with the default fixtures.
func New(cfg *twincore.Config) *Twin {
	if cfg.Name == "" {
		cfg.Name = Name
	}
	base := twincore.New(cfg)
	mem := store.New()
	mem.SeedDefaults()

	api.NewHandler(mem, base.Middleware()).Routes(base.Router)

	adminHandler := admin.NewHandler(mem, base.Middleware(), mem.Clock)
	adminHandler.SetConfigProvider(base)
	adminHandler.Routes(base.Router)

	return &Twin{Twin: base, Store: mem}
}

// LoadSeedFile adds the fixtures of a YAML or JSON seed file.
func (t *Twin) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	if err := t.Store.LoadSeed(data); err != nil {
		return fmt.Errorf("load seed file %s: %w", path, err)
	}
	t.Logger.Info("loaded seed data", "file", path)
	return nil
}

package palette

import (
	"context"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/cmdk/internal/storage"
	"github.com/oakwood-commons/cmdk/pkg/command"
)

// settingsBlob is the persisted shape of per-command setting overrides.
type settingsBlob struct {
	Commands map[string]command.Settings `yaml:"commands"`
}

// favoritesBlob keeps favorite ids in the order they were pinned.
type favoritesBlob struct {
	IDs []string `yaml:"ids"`
}

func (e *Engine) loadSettings(ctx context.Context) (map[string]command.Settings, error) {
	data, ok, err := e.store.Get(ctx, storage.KeySettings)
	if err != nil {
		return nil, err
	}
	blob := settingsBlob{}
	if ok {
		if err := yaml.Unmarshal(data, &blob); err != nil {
			// A corrupt blob must not brick the palette. Overrides reset.
			e.log.Error(err, "settings blob unreadable, starting fresh")
		}
	}
	if blob.Commands == nil {
		blob.Commands = make(map[string]command.Settings)
	}
	return blob.Commands, nil
}

func (e *Engine) saveSettings(ctx context.Context, settings map[string]command.Settings) error {
	data, err := yaml.Marshal(settingsBlob{Commands: settings})
	if err != nil {
		return err
	}
	return e.store.Set(ctx, storage.KeySettings, data)
}

func (e *Engine) loadFavorites(ctx context.Context) ([]string, error) {
	data, ok, err := e.store.Get(ctx, storage.KeyFavorites)
	if err != nil {
		return nil, err
	}
	blob := favoritesBlob{}
	if ok {
		if err := yaml.Unmarshal(data, &blob); err != nil {
			e.log.Error(err, "favorites blob unreadable, starting fresh")
		}
	}
	return blob.IDs, nil
}

func (e *Engine) saveFavorites(ctx context.Context, ids []string) error {
	data, err := yaml.Marshal(favoritesBlob{IDs: ids})
	if err != nil {
		return err
	}
	return e.store.Set(ctx, storage.KeyFavorites, data)
}

// loadState fetches overrides plus the favorite set in one call for the
// read paths that need both.
func (e *Engine) loadState(ctx context.Context) (map[string]command.Settings, map[string]bool, error) {
	overrides, err := e.loadSettings(ctx)
	if err != nil {
		return nil, nil, err
	}
	ids, err := e.loadFavorites(ctx)
	if err != nil {
		return nil, nil, err
	}
	favorites := make(map[string]bool, len(ids))
	for _, id := range ids {
		favorites[id] = true
	}
	return overrides, favorites, nil
}

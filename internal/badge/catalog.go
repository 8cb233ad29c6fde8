package badge

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCatalog is a catalog backed by a map. Serves dev and tests; a real
// deployment plugs in a client for the external catalog system.
type MemoryCatalog struct {
	mu     sync.Mutex
	assets map[string]Asset
	badges map[string]Asset
	nextID int
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		assets: make(map[string]Asset),
		badges: make(map[string]Asset),
	}
}

// AddAsset registers an asset the catalog knows about.
func (c *MemoryCatalog) AddAsset(asset Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets[asset.Ref] = asset
}

func (c *MemoryCatalog) GetAsset(_ context.Context, assetRef string) (Asset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	asset, ok := c.assets[assetRef]
	if !ok {
		return Asset{}, ErrAssetNotFound
	}
	return asset, nil
}

func (c *MemoryCatalog) CreateBadge(_ context.Context, asset Asset) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	ref := fmt.Sprintf("badge-%d", c.nextID)
	c.badges[ref] = asset
	return ref, nil
}

// Badge returns the asset a badge was issued for, for test assertions.
func (c *MemoryCatalog) Badge(ref string) (Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	asset, ok := c.badges[ref]
	return asset, ok
}

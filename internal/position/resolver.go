// Package position maps account position mode and order side onto the
// exchange position index. Every order path goes through Resolve.
package position

import (
	"context"
	"sync"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// Resolve returns the position index for an order side under the given mode.
// Unknown modes are treated as one-way.
func Resolve(mode types.PositionMode, side types.Side) types.PositionIndex {
	if mode != types.PositionModeHedge {
		return types.PositionIndexOneWay
	}
	if side == types.SideShort {
		return types.PositionIndexShort
	}
	return types.PositionIndexLong
}

// ModeFromIndexes infers the account mode from the position indexes an
// exchange reports. Any hedge leg means the account is in hedge mode.
func ModeFromIndexes(indexes []int) types.PositionMode {
	for _, idx := range indexes {
		if idx == int(types.PositionIndexLong) || idx == int(types.PositionIndexShort) {
			return types.PositionModeHedge
		}
	}
	return types.PositionModeOneWay
}

// ModeSource is anything that can report the account position mode.
type ModeSource interface {
	GetPositionMode(ctx context.Context) (types.PositionMode, error)
}

// ModeCache holds the mode read once at session start.
type ModeCache struct {
	mu     sync.RWMutex
	mode   types.PositionMode
	loaded bool
}

func NewModeCache() *ModeCache {
	return &ModeCache{mode: types.PositionModeOneWay}
}

// Load queries the source and stores the result. Call it again to refresh.
func (c *ModeCache) Load(ctx context.Context, src ModeSource) (types.PositionMode, error) {
	mode, err := src.GetPositionMode(ctx)
	if err != nil {
		return c.Mode(), err
	}

	c.mu.Lock()
	c.mode = mode
	c.loaded = true
	c.mu.Unlock()
	return mode, nil
}

// Set overrides the cached mode, e.g. from configuration.
func (c *ModeCache) Set(mode types.PositionMode) {
	c.mu.Lock()
	c.mode = mode
	c.loaded = true
	c.mu.Unlock()
}

func (c *ModeCache) Mode() types.PositionMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *ModeCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

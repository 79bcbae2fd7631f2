// Package channel registers the notification channels klaxon announces at
// startup.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jmylchreest/klaxon/internal/model"
)

// Registrar creates notification channels. Creating a channel that already
// exists replaces it.
type Registrar interface {
	CreateChannel(desc model.ChannelDescriptor) error
}

// Registry is an in-memory Registrar.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]model.ChannelDescriptor
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		channels: make(map[string]model.ChannelDescriptor),
		logger:   logger,
	}
}

// CreateChannel validates desc and stores it, replacing any channel with the
// same ID.
func (r *Registry) CreateChannel(desc model.ChannelDescriptor) error {
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("invalid channel %q: %w", desc.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.channels[desc.ID]
	r.channels[desc.ID] = *desc.Clone()

	r.logger.Debug("channel registered", "id", desc.ID, "importance", desc.ImportanceName(), "replaced", replaced)
	return nil
}

// Get returns the channel with the given ID.
func (r *Registry) Get(id string) (model.ChannelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.channels[id]
	if !ok {
		return model.ChannelDescriptor{}, false
	}
	return *desc.Clone(), true
}

// List returns all channels sorted by ID.
func (r *Registry) List() []model.ChannelDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.ChannelDescriptor, 0, len(r.channels))
	for _, desc := range r.channels {
		result = append(result, *desc.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// ChannelSource supplies the channel descriptors to register.
type ChannelSource interface {
	EmergencyChannel() model.ChannelDescriptor
	DefaultChannel() model.ChannelDescriptor
}

// RegisterDefaults registers the emergency and default channels built from
// src. A failure on one channel is logged and does not prevent the other from
// being registered; all failures are returned joined.
func RegisterDefaults(ctx context.Context, registrar Registrar, src ChannelSource, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var errs []error
	for _, desc := range []model.ChannelDescriptor{src.EmergencyChannel(), src.DefaultChannel()} {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := registrar.CreateChannel(desc); err != nil {
			logger.Warn("failed to register channel", "id", desc.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		logger.Info("registered channel", "id", desc.ID, "name", desc.Name)
	}
	return errors.Join(errs...)
}

// Package channel provides channel management for chat transports.
package channel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// Registry manages the set of chat transports the bot listens on.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
	log      *logging.Logger
}

// NewRegistry creates a channel registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		channels: make(map[string]domain.Channel),
		log:      log.Sub("channels"),
	}
}

// Register adds a channel. Registering the same ID twice is a wiring bug.
func (r *Registry) Register(ch domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.channels[ch.ID()]; exists {
		return fmt.Errorf("channel %q already registered", ch.ID())
	}
	r.channels[ch.ID()] = ch
	r.log.Info().Str("channel", ch.ID()).Msg("channel registered")
	return nil
}

// Get returns a channel by ID.
func (r *Registry) Get(id string) (domain.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// List returns all channel IDs, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Status reports the runtime state of every registered channel, ordered by
// channel ID. Channels that do not expose a Status method are reported as
// running.
func (r *Registry) Status() []domain.ChannelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]domain.ChannelStatus, 0, len(r.channels))
	for _, ch := range r.channels {
		if sc, ok := ch.(interface{ Status() domain.ChannelStatus }); ok {
			statuses = append(statuses, sc.Status())
			continue
		}
		statuses = append(statuses, domain.ChannelStatus{ChannelID: ch.ID(), Running: true})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ChannelID < statuses[j].ChannelID })
	return statuses
}

// StartAll starts every registered channel in a background goroutine.
// Channel Start methods may block (IRC's Connect does), so each is
// launched concurrently to avoid stalling the rest of startup.
func (r *Registry) StartAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("starting channel")
		go func(id string, ch domain.Channel) {
			if err := ch.Start(ctx); err != nil {
				r.log.Error().Err(err).Str("channel", id).Msg("channel exited with error")
			}
		}(id, ch)
	}
}

// StopAll stops all registered channels.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.channels {
		r.log.Info().Str("channel", id).Msg("stopping channel")
		if err := ch.Stop(ctx); err != nil {
			r.log.Error().Err(err).Str("channel", id).Msg("failed to stop channel")
		}
	}
}

// Count returns the number of registered channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

package registry

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"chaingate/internal/chain"
	"chaingate/internal/failure"
)

// Registry holds the per-chain ordered endpoint lists. Order encodes
// preference: the head is the endpoint new sessions dial first. Rotation moves
// a failed head to the back; endpoints are never evicted, so a fully failing
// list cycles back to its original order and recovers without operator
// intervention once nodes come back.
type Registry struct {
	mu     sync.Mutex
	lists  map[chain.Chain][]string
	logger zerolog.Logger
}

// New builds a Registry from per-chain endpoint lists. An empty list for any
// chain is a configuration error.
func New(endpoints map[chain.Chain][]string, logger zerolog.Logger) (*Registry, error) {
	lists := make(map[chain.Chain][]string, len(endpoints))
	for ch, eps := range endpoints {
		if len(eps) == 0 {
			return nil, &failure.ConfigError{Reason: fmt.Sprintf("chain %s has no endpoints", ch)}
		}
		lists[ch] = append([]string(nil), eps...)
	}
	return &Registry{
		lists:  lists,
		logger: logger.With().Str("component", "registry").Logger(),
	}, nil
}

// Current returns the most-preferred endpoint for the chain, or an empty
// string if the chain is not configured.
func (r *Registry) Current(ch chain.Chain) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.lists[ch]
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// Rotate treats the current head as failed, moves it to the back and returns
// the new head. The list is always a permutation of the configured endpoints,
// also under concurrent callers.
func (r *Registry) Rotate(ch chain.Chain) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.lists[ch]
	if len(list) == 0 {
		return ""
	}

	head := list[0]
	copy(list, list[1:])
	list[len(list)-1] = head

	r.logger.Debug().
		Str("chain", ch.String()).
		Str("demoted", head).
		Str("head", list[0]).
		Msg("endpoint rotated")
	return list[0]
}

// Snapshot returns a copy of the current preference order.
func (r *Registry) Snapshot(ch chain.Chain) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lists[ch]...)
}

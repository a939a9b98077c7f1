package static

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"chaingate/internal/chain"
)

// MarketEntry is one row of the precomputed market-search index.
type MarketEntry struct {
	Symbol string `json:"symbol"`
	ID     string `json:"id"`
}

// Store serves the precomputed read-only datasets for one chain: assets,
// liquidity pools, the fee schedule, the bitasset list and the market-search
// index. Files are produced and refreshed out-of-band; a missing file just
// means that dataset has no entries.
type Store struct {
	assets    map[string]json.RawMessage
	pools     map[string]json.RawMessage
	fees      json.RawMessage
	bitassets json.RawMessage
	index     []MarketEntry
}

// Load reads the chain's datasets from dir/<chain>/.
func Load(dir string, ch chain.Chain, logger zerolog.Logger) (*Store, error) {
	base := filepath.Join(dir, ch.String())
	s := &Store{
		assets: make(map[string]json.RawMessage),
		pools:  make(map[string]json.RawMessage),
	}

	loaded := make([]string, 0, 5)
	for _, dataset := range []struct {
		file string
		dest interface{}
	}{
		{"assets.json", &s.assets},
		{"pools.json", &s.pools},
		{"fees.json", &s.fees},
		{"bitassets.json", &s.bitassets},
		{"marketindex.json", &s.index},
	} {
		ok, err := loadJSON(filepath.Join(base, dataset.file), dataset.dest)
		if err != nil {
			return nil, err
		}
		if ok {
			loaded = append(loaded, dataset.file)
		}
	}

	logger.Info().
		Str("chain", ch.String()).
		Strs("datasets", loaded).
		Int("assets", len(s.assets)).
		Int("markets", len(s.index)).
		Msg("static data loaded")
	return s, nil
}

// Asset looks up one asset by object id.
func (s *Store) Asset(id string) (json.RawMessage, bool) {
	raw, ok := s.assets[id]
	return raw, ok
}

// Pool looks up one liquidity pool by object id.
func (s *Store) Pool(id string) (json.RawMessage, bool) {
	raw, ok := s.pools[id]
	return raw, ok
}

// FeeSchedule returns the chain's fee schedule snapshot.
func (s *Store) FeeSchedule() (json.RawMessage, bool) {
	return s.fees, s.fees != nil
}

// Bitassets returns the precomputed bitasset list.
func (s *Store) Bitassets() (json.RawMessage, bool) {
	return s.bitassets, s.bitassets != nil
}

// SearchMarkets returns index entries whose symbol contains the query,
// case-insensitive.
func (s *Store) SearchMarkets(query string) []MarketEntry {
	q := strings.ToUpper(query)
	matches := make([]MarketEntry, 0)
	for _, entry := range s.index {
		if strings.Contains(strings.ToUpper(entry.Symbol), q) {
			matches = append(matches, entry)
		}
	}
	return matches
}

func loadJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return true, nil
}

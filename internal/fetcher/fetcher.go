package fetcher

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"chaingate/internal/failure"
	"chaingate/internal/jsonrpc"
	"chaingate/internal/metrics"
)

// ChunkSize is the node's batch limit for a single get_objects call.
const ChunkSize = 50

// Caller is the one-shot call primitive the fetcher runs on.
type Caller interface {
	Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
}

// Fetcher retrieves objects by id in fixed-size chunks over one session.
type Fetcher struct {
	logger zerolog.Logger
}

// New creates a Fetcher.
func New(logger zerolog.Logger) *Fetcher {
	return &Fetcher{logger: logger.With().Str("component", "fetcher").Logger()}
}

// FetchObjects splits ids into consecutive chunks of at most ChunkSize,
// preserving input order, and issues one non-recursive get_objects call per
// chunk. A failing chunk contributes nothing and processing continues with
// the next chunk: one bad id must not blank out an otherwise valid batch.
// Null entries for unknown ids are filtered before merging. An empty merged
// result is reported as ErrNoObjects; a partially populated result is success.
func (f *Fetcher) FetchObjects(ctx context.Context, conn Caller, ids []string) ([]json.RawMessage, error) {
	merged := make([]json.RawMessage, 0, len(ids))

	for start := 0; start < len(ids); start += ChunkSize {
		end := start + ChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		raw, err := conn.Call(ctx, "get_objects", []interface{}{chunk, false})
		if err != nil {
			metrics.ChunkFailures.Inc()
			f.logger.Warn().
				Err(err).
				Int("offset", start).
				Int("size", len(chunk)).
				Msg("object chunk failed, skipping")
			continue
		}

		var objects []json.RawMessage
		if err := json.Unmarshal(raw, &objects); err != nil {
			metrics.ChunkFailures.Inc()
			f.logger.Warn().
				Err(err).
				Int("offset", start).
				Msg("object chunk undecodable, skipping")
			continue
		}

		for _, obj := range objects {
			if jsonrpc.IsNull(obj) {
				continue
			}
			merged = append(merged, obj)
		}
	}

	if len(merged) == 0 {
		return nil, failure.ErrNoObjects
	}
	return merged, nil
}

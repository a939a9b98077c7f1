package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chaingate/internal/cache"
	"chaingate/internal/chain"
	"chaingate/internal/failure"
)

// Options narrows an account history query: pagination window, date range,
// sort field and aggregation field.
type Options struct {
	From   int
	Size   int
	After  string
	Before string
	Sort   string
	Agg    string
}

// Client proxies the external block-explorer history service. The response
// document is passed through unmodified and cached briefly by full URL.
type Client struct {
	httpClient *http.Client
	bases      map[chain.Chain]string
	cache      cache.Cache
	logger     zerolog.Logger
}

// NewClient creates a history client for the configured per-chain base URLs.
func NewClient(bases map[chain.Chain]string, c cache.Cache, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		bases:      bases,
		cache:      c,
		logger:     logger.With().Str("component", "history").Logger(),
	}
}

// AccountHistory fetches the history document for an account.
func (c *Client) AccountHistory(ctx context.Context, ch chain.Chain, accountID string, opts Options) (json.RawMessage, error) {
	base, ok := c.bases[ch]
	if !ok || base == "" {
		return nil, &failure.ConfigError{Reason: fmt.Sprintf("no history service configured for chain %s", ch)}
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, &failure.ConfigError{Reason: fmt.Sprintf("malformed history URL for chain %s: %v", ch, err)}
	}
	q := u.Query()
	q.Set("account_id", accountID)
	if opts.From > 0 {
		q.Set("from", strconv.Itoa(opts.From))
	}
	if opts.Size > 0 {
		q.Set("size", strconv.Itoa(opts.Size))
	}
	if opts.After != "" {
		q.Set("from_date", opts.After)
	}
	if opts.Before != "" {
		q.Set("to_date", opts.Before)
	}
	if opts.Sort != "" {
		q.Set("sort_by", opts.Sort)
	}
	if opts.Agg != "" {
		q.Set("agg_field", opts.Agg)
	}
	u.RawQuery = q.Encode()
	target := u.String()

	if cached, ok := c.cache.Get(target); ok {
		return json.RawMessage(cached), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &failure.ConnectivityError{Endpoint: base, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &failure.ConnectivityError{Endpoint: base, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &failure.RemoteCallError{
			Method:  "account history",
			Code:    resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	c.cache.Set(target, body)
	c.logger.Debug().
		Str("chain", ch.String()).
		Str("account", accountID).
		Int("bytes", len(body)).
		Msg("history fetched")
	return json.RawMessage(body), nil
}

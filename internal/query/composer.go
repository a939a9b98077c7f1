package query

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/rs/zerolog"

	"chaingate/internal/chain"
	"chaingate/internal/failure"
	"chaingate/internal/fetcher"
	"chaingate/internal/node"
)

const (
	// openOrdersLimit caps the open orders returned for one account.
	openOrdersLimit = 100
)

var (
	accountIDPattern = regexp.MustCompile(`^1\.2\.\d+$`)
	assetIDPattern   = regexp.MustCompile(`^1\.3\.\d+$`)
)

// Composer fans out chain-state queries over request-scoped sessions.
type Composer struct {
	opener  node.Opener
	fetcher *fetcher.Fetcher
	logger  zerolog.Logger
}

// NewComposer creates a query composer.
func NewComposer(opener node.Opener, f *fetcher.Fetcher, logger zerolog.Logger) *Composer {
	return &Composer{
		opener:  opener,
		fetcher: f,
		logger:  logger.With().Str("component", "query").Logger(),
	}
}

// Portfolio is a consistent snapshot of an account's balances and open
// orders.
type Portfolio struct {
	Balances   json.RawMessage `json:"balances"`
	OpenOrders json.RawMessage `json:"openOrders"`
}

// Portfolio issues both sub-queries over one session. Partial results are
// never returned: callers expect a consistent snapshot, so either sub-query
// failing fails the composite as a whole.
func (c *Composer) Portfolio(ctx context.Context, ch chain.Chain, accountID string) (*Portfolio, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}

	conn, err := c.opener.Open(ctx, ch)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	balances, err := c.balances(ctx, conn, accountID)
	if err != nil {
		return nil, err
	}
	orders, err := c.openOrders(ctx, conn, accountID)
	if err != nil {
		return nil, err
	}
	return &Portfolio{Balances: balances, OpenOrders: orders}, nil
}

// Balances returns all asset balances held by an account.
func (c *Composer) Balances(ctx context.Context, ch chain.Chain, accountID string) (json.RawMessage, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	conn, err := c.opener.Open(ctx, ch)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return c.balances(ctx, conn, accountID)
}

// OpenOrders returns the account's open limit orders.
func (c *Composer) OpenOrders(ctx context.Context, ch chain.Chain, accountID string) (json.RawMessage, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	conn, err := c.opener.Open(ctx, ch)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return c.openOrders(ctx, conn, accountID)
}

// Objects fetches a batch of objects by id over one session.
func (c *Composer) Objects(ctx context.Context, ch chain.Chain, ids []string) ([]json.RawMessage, error) {
	if len(ids) == 0 {
		return nil, &failure.ValidationError{Field: "ids", Reason: "at least one object id is required"}
	}
	conn, err := c.opener.Open(ctx, ch)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return c.fetcher.FetchObjects(ctx, conn, ids)
}

func (c *Composer) balances(ctx context.Context, conn node.Conn, accountID string) (json.RawMessage, error) {
	return conn.Call(ctx, "get_account_balances", []interface{}{accountID, []string{}})
}

func (c *Composer) openOrders(ctx context.Context, conn node.Conn, accountID string) (json.RawMessage, error) {
	return conn.Call(ctx, "get_limit_orders_by_account", []interface{}{accountID, openOrdersLimit, nil})
}

func validateAccountID(accountID string) error {
	if !accountIDPattern.MatchString(accountID) {
		return &failure.ValidationError{Field: "account", Reason: "must be an account object id (1.2.x)"}
	}
	return nil
}

func validateAssetID(field, assetID string) error {
	if !assetIDPattern.MatchString(assetID) {
		return &failure.ValidationError{Field: field, Reason: "must be an asset object id (1.3.x)"}
	}
	return nil
}

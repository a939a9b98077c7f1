package query

import (
	"context"
	"encoding/json"

	"chaingate/internal/chain"
)

const (
	// orderBookDepth is the number of price levels per side.
	orderBookDepth = 50

	// limitOrdersCount caps the raw orders returned for one market.
	limitOrdersCount = 100
)

// OrderBook returns the aggregated bids and asks for a market. Asset ids are
// validated before any network activity.
func (c *Composer) OrderBook(ctx context.Context, ch chain.Chain, base, quote string) (json.RawMessage, error) {
	if err := validateAssetID("base", base); err != nil {
		return nil, err
	}
	if err := validateAssetID("quote", quote); err != nil {
		return nil, err
	}

	conn, err := c.opener.Open(ctx, ch)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return conn.Call(ctx, "get_order_book", []interface{}{base, quote, orderBookDepth})
}

// LimitOrders returns the open limit orders for a market.
func (c *Composer) LimitOrders(ctx context.Context, ch chain.Chain, base, quote string) (json.RawMessage, error) {
	if err := validateAssetID("base", base); err != nil {
		return nil, err
	}
	if err := validateAssetID("quote", quote); err != nil {
		return nil, err
	}

	conn, err := c.opener.Open(ctx, ch)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return conn.Call(ctx, "get_limit_orders", []interface{}{base, quote, limitOrdersCount})
}

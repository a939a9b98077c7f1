package query

import (
	"context"
	"encoding/json"

	"chaingate/internal/chain"
	"chaingate/internal/failure"
	"chaingate/internal/jsonrpc"
)

// Account resolves an account by object id or by name. A null result is the
// normal not-found outcome, not an error. The id lookup issues a single
// get_objects call directly rather than going through the batch fetcher: the
// fetcher tolerates chunk failures, but a single lookup must surface a failed
// call instead of reporting not-found.
func (c *Composer) Account(ctx context.Context, ch chain.Chain, query string) (json.RawMessage, error) {
	if query == "" {
		return nil, &failure.ValidationError{Field: "account", Reason: "must not be empty"}
	}

	conn, err := c.opener.Open(ctx, ch)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var raw json.RawMessage
	if accountIDPattern.MatchString(query) {
		result, err := conn.Call(ctx, "get_objects", []interface{}{[]string{query}, false})
		if err != nil {
			return nil, err
		}
		var objects []json.RawMessage
		if err := json.Unmarshal(result, &objects); err != nil {
			return nil, &failure.RemoteCallError{Method: "get_objects", Message: err.Error()}
		}
		if len(objects) == 0 {
			return nil, failure.ErrNotFound
		}
		raw = objects[0]
	} else {
		raw, err = conn.Call(ctx, "get_account_by_name", []interface{}{query})
		if err != nil {
			return nil, err
		}
	}

	if jsonrpc.IsNull(raw) {
		return nil, failure.ErrNotFound
	}
	return raw, nil
}

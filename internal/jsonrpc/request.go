package jsonrpc

import "encoding/json"

// Request represents a JSON-RPC request
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      ID          `json:"id"`
}

// NewCall builds the node's call envelope: the outer method is always "call"
// and params select the API slot, the target method and its arguments.
func NewCall(id int64, method string, params interface{}) *Request {
	return &Request{
		JSONRPC: Version,
		Method:  "call",
		Params:  []interface{}{DatabaseAPI, method, params},
		ID:      NewIDInt(id),
	}
}

// Bytes returns the request as JSON bytes
func (r *Request) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

package chain

import (
	"fmt"

	"chaingate/internal/failure"
)

// Chain identifies a distinct target network instance. It selects which
// endpoint list and external service URLs apply and is immutable once parsed.
type Chain string

const (
	Mainnet Chain = "mainnet"
	Testnet Chain = "testnet"
)

func (c Chain) String() string { return string(c) }

// Tag returns the network tag embedded in signing envelopes so external
// signers can distinguish network variants.
func (c Chain) Tag() string {
	if c == Testnet {
		return "BTS_TEST"
	}
	return "BTS"
}

// Parse validates a chain parameter. Exactly two literal values are accepted;
// anything else is a validation failure before orchestration begins.
func Parse(s string) (Chain, error) {
	switch Chain(s) {
	case Mainnet, Testnet:
		return Chain(s), nil
	}
	return "", &failure.ValidationError{Field: "chain", Reason: fmt.Sprintf("unknown chain %q", s)}
}

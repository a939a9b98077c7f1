package txbuilder

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// draftState tracks the fixed build order. Each transition is only legal from
// its predecessor, which makes "abort remaining steps on first failure"
// structural rather than convention.
type draftState int

const (
	stateOpen draftState = iota
	stateAnchored
	stateFeesSet
	stateExpiring
	stateFinal
)

func (s draftState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateAnchored:
		return "anchored"
	case stateFeesSet:
		return "fees-set"
	case stateExpiring:
		return "expiration-set"
	case stateFinal:
		return "finalized"
	}
	return "unknown"
}

// expirationFormat is the chain's ISO timestamp without a zone designator.
const expirationFormat = "2006-01-02T15:04:05"

// Fee is the fee charged to one operation, denominated in the core asset.
type Fee struct {
	Amount  int64  `json:"amount"`
	AssetID string `json:"asset_id"`
}

// Operation is one typed operation inside a draft. The payload is opaque to
// the orchestration layer except for the fee written into it.
type Operation struct {
	Type    string
	Payload map[string]interface{}
}

// Draft is an in-progress transaction built in a fixed step order. Once
// finalized no further mutation is permitted.
type Draft struct {
	state draftState

	operations     []Operation
	refBlockNum    uint16
	refBlockPrefix uint32
	headTime       time.Time
	expiration     time.Time
}

// NewDraft creates an empty draft accepting operations.
func NewDraft() *Draft {
	return &Draft{state: stateOpen}
}

// AppendOperation adds one operation of the given type, preserving input
// order. Only legal before the reference block is anchored.
func (d *Draft) AppendOperation(opType string, payload json.RawMessage) error {
	if d.state != stateOpen {
		return d.stateError("append operation", stateOpen)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return fmt.Errorf("operation payload must be an object: %w", err)
	}
	d.operations = append(d.operations, Operation{Type: opType, Payload: fields})
	return nil
}

// SetReferenceBlock anchors the draft to the chain's current head. The anchor
// is a freshness guarantee: a stale or replayed transaction is rejected by the
// network outright.
func (d *Draft) SetReferenceBlock(headBlockNum uint32, headBlockID string, headTime time.Time) error {
	if d.state != stateOpen {
		return d.stateError("set reference block", stateOpen)
	}
	prefix, err := refBlockPrefix(headBlockID)
	if err != nil {
		return err
	}
	d.refBlockNum = uint16(headBlockNum & 0xffff)
	d.refBlockPrefix = prefix
	d.headTime = headTime
	d.state = stateAnchored
	return nil
}

// SetFees writes one computed fee into each operation payload, in order.
func (d *Draft) SetFees(fees []Fee) error {
	if d.state != stateAnchored {
		return d.stateError("set fees", stateAnchored)
	}
	if len(fees) != len(d.operations) {
		return fmt.Errorf("fee count %d does not match operation count %d", len(fees), len(d.operations))
	}
	for i := range d.operations {
		d.operations[i].Payload["fee"] = fees[i]
	}
	d.state = stateFeesSet
	return nil
}

// SetExpiration stamps the validity window relative to the reference block
// time.
func (d *Draft) SetExpiration(window time.Duration) error {
	if d.state != stateFeesSet {
		return d.stateError("set expiration", stateFeesSet)
	}
	d.expiration = d.headTime.Add(window)
	d.state = stateExpiring
	return nil
}

// Finalize locks in operation ordering, fee amounts and the reference block.
func (d *Draft) Finalize() error {
	if d.state != stateExpiring {
		return d.stateError("finalize", stateExpiring)
	}
	d.state = stateFinal
	return nil
}

// Expiration returns the stamped expiration time.
func (d *Draft) Expiration() time.Time { return d.expiration }

// Transaction serializes the finalized draft.
func (d *Draft) Transaction() (json.RawMessage, error) {
	if d.state != stateFinal {
		return nil, d.stateError("serialize", stateFinal)
	}
	ops := make([][2]interface{}, len(d.operations))
	for i, op := range d.operations {
		ops[i] = [2]interface{}{op.Type, op.Payload}
	}
	return json.Marshal(struct {
		RefBlockNum    uint16           `json:"ref_block_num"`
		RefBlockPrefix uint32           `json:"ref_block_prefix"`
		Expiration     string           `json:"expiration"`
		Operations     [][2]interface{} `json:"operations"`
		Extensions     []interface{}    `json:"extensions"`
	}{
		RefBlockNum:    d.refBlockNum,
		RefBlockPrefix: d.refBlockPrefix,
		Expiration:     d.expiration.UTC().Format(expirationFormat),
		Operations:     ops,
		Extensions:     []interface{}{},
	})
}

func (d *Draft) stateError(op string, want draftState) error {
	return fmt.Errorf("cannot %s: draft is %s, want %s", op, d.state, want)
}

// refBlockPrefix derives the 32-bit replay-protection prefix from bytes 4..8
// of the head block id, little-endian.
func refBlockPrefix(headBlockID string) (uint32, error) {
	raw, err := hex.DecodeString(headBlockID)
	if err != nil || len(raw) < 8 {
		return 0, fmt.Errorf("malformed head block id %q", headBlockID)
	}
	return binary.LittleEndian.Uint32(raw[4:8]), nil
}

package txbuilder

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chaingate/internal/chain"
	"chaingate/internal/failure"
	"chaingate/internal/node"
)

const (
	// ExpirationWindow is the fixed transaction validity window, measured
	// from the reference block time.
	ExpirationWindow = 7200 * time.Second

	// AppID tags signing envelopes with the producing application.
	AppID = "chaingate"

	// feeAssetID is the core asset fees are denominated in.
	feeAssetID = "1.3.0"
)

// Step names reported in StepError.
const (
	StepOpenSession    = "open session"
	StepReferenceBlock = "reference block"
	StepFees           = "fees"
	StepExpiration     = "expiration"
	StepFinalize       = "finalize"
	StepEnvelope       = "envelope"
)

// SigningEnvelope wraps a finalized, unsigned transaction for an external
// signer. Produced once per build, returned directly to the caller, never
// persisted.
type SigningEnvelope struct {
	ID      string          `json:"id"`
	App     string          `json:"app"`
	Chain   string          `json:"chain"`
	Payload json.RawMessage `json:"payload"`
}

// Encode returns the URL-safe encoded envelope delivered to the signer.
func (e *SigningEnvelope) Encode() (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// dynamicGlobalProperties is the slice of the node's chain-head object the
// builder needs: block height, block id and head time.
type dynamicGlobalProperties struct {
	HeadBlockNumber uint32 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
	Time            string `json:"time"`
}

// Builder sequences the build-fee-expire-finalize protocol. The fixed step
// order mirrors the network's transaction-validity rules; reordering it is a
// correctness bug, not a style choice.
type Builder struct {
	opener node.Opener
	logger zerolog.Logger
}

// NewBuilder creates a transaction orchestrator on top of a session opener.
func NewBuilder(opener node.Opener, logger zerolog.Logger) *Builder {
	return &Builder{
		opener: opener,
		logger: logger.With().Str("component", "txbuilder").Logger(),
	}
}

// BuildSigningRequest runs the full orchestration for one transaction: open a
// session, append the operations in input order, anchor the reference block,
// compute fees, set the expiration, finalize, and envelope the result. Any
// step failure aborts the remaining steps and is tagged with the step name;
// the session is closed on every path and no partial payload is ever
// produced.
func (b *Builder) BuildSigningRequest(ctx context.Context, ch chain.Chain, opType string, payloads []json.RawMessage) (*SigningEnvelope, error) {
	if opType == "" {
		return nil, &failure.ValidationError{Field: "operationType", Reason: "must not be empty"}
	}
	if len(payloads) == 0 {
		return nil, &failure.ValidationError{Field: "payloads", Reason: "at least one operation payload is required"}
	}

	draft := NewDraft()
	for _, payload := range payloads {
		if err := draft.AppendOperation(opType, payload); err != nil {
			return nil, &failure.ValidationError{Field: "payloads", Reason: err.Error()}
		}
	}

	conn, err := b.opener.Open(ctx, ch)
	if err != nil {
		return nil, &failure.StepError{Step: StepOpenSession, Err: err}
	}
	defer conn.Close()

	if err := b.anchorReferenceBlock(ctx, conn, draft); err != nil {
		return nil, &failure.StepError{Step: StepReferenceBlock, Err: err}
	}
	if err := b.computeFees(ctx, conn, draft, opType, payloads); err != nil {
		return nil, &failure.StepError{Step: StepFees, Err: err}
	}
	if err := draft.SetExpiration(ExpirationWindow); err != nil {
		return nil, &failure.StepError{Step: StepExpiration, Err: err}
	}
	if err := draft.Finalize(); err != nil {
		return nil, &failure.StepError{Step: StepFinalize, Err: err}
	}

	tx, err := draft.Transaction()
	if err != nil {
		return nil, &failure.StepError{Step: StepEnvelope, Err: err}
	}

	envelope := &SigningEnvelope{
		ID:      uuid.NewString(),
		App:     AppID,
		Chain:   ch.Tag(),
		Payload: tx,
	}
	b.logger.Info().
		Str("chain", ch.String()).
		Str("operation", opType).
		Int("operations", len(payloads)).
		Str("request", envelope.ID).
		Msg("signing request built")
	return envelope, nil
}

func (b *Builder) anchorReferenceBlock(ctx context.Context, conn node.Conn, draft *Draft) error {
	raw, err := conn.Call(ctx, "get_dynamic_global_properties", []interface{}{})
	if err != nil {
		return err
	}
	var props dynamicGlobalProperties
	if err := json.Unmarshal(raw, &props); err != nil {
		return fmt.Errorf("undecodable chain head: %w", err)
	}
	headTime, err := time.Parse(expirationFormat, props.Time)
	if err != nil {
		return fmt.Errorf("undecodable head time %q: %w", props.Time, err)
	}
	return draft.SetReferenceBlock(props.HeadBlockNumber, props.HeadBlockID, headTime)
}

func (b *Builder) computeFees(ctx context.Context, conn node.Conn, draft *Draft, opType string, payloads []json.RawMessage) error {
	ops := make([][2]interface{}, len(payloads))
	for i, payload := range payloads {
		ops[i] = [2]interface{}{opType, json.RawMessage(payload)}
	}
	raw, err := conn.Call(ctx, "get_required_fees", []interface{}{ops, feeAssetID})
	if err != nil {
		return err
	}
	var fees []Fee
	if err := json.Unmarshal(raw, &fees); err != nil {
		return fmt.Errorf("undecodable fee result: %w", err)
	}
	return draft.SetFees(fees)
}

package factory

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"math"
	"time"

	"github.com/goliatone/go-factory/internal/hydrate"
	"github.com/goliatone/go-factory/pkg/state"
)

// SignedRequest is a caller-authenticated operation aimed at the factory
// record. Target is the address the caller resolved; the zero identity asks
// the factory to use its own.
type SignedRequest struct {
	Signer    Identity `json:"signer" yaml:"signer"`
	Operation string   `json:"operation" yaml:"operation"`
	Target    Identity `json:"target" yaml:"target"`
	Payload   []byte   `json:"payload,omitempty" yaml:"payload,omitempty"`
	Signature []byte   `json:"signature" yaml:"signature"`
}

// InitializeParams is the payload of an initialize request.
type InitializeParams struct {
	MinCollateralRatio uint16 `json:"min_collateral_ratio"`
	BaseFeeRate        uint16 `json:"base_fee_rate"`
}

// initializePayload and updatePayload decode numbers wider than the record
// fields so out of range values are reported against their field.
type initializePayload struct {
	MinCollateralRatio int64 `json:"min_collateral_ratio"`
	BaseFeeRate        int64 `json:"base_fee_rate"`
}

type updatePayload struct {
	NewAdmin              Optional[Identity] `json:"new_admin"`
	NewMinCollateralRatio Optional[int64]    `json:"new_min_collateral_ratio"`
	NewBaseFeeRate        Optional[int64]    `json:"new_base_fee_rate"`
	NewFeeRecipient       Optional[Identity] `json:"new_fee_recipient"`
}

func (p initializePayload) params() (InitializeParams, error) {
	ratio, err := payloadRatio(p.MinCollateralRatio)
	if err != nil {
		return InitializeParams{}, err
	}
	fee, err := payloadFeeRate(p.BaseFeeRate)
	if err != nil {
		return InitializeParams{}, err
	}
	return InitializeParams{MinCollateralRatio: ratio, BaseFeeRate: fee}, nil
}

func (p updatePayload) params() (UpdateParams, error) {
	params := UpdateParams{NewAdmin: p.NewAdmin, NewFeeRecipient: p.NewFeeRecipient}
	if v, ok := p.NewMinCollateralRatio.Get(); ok {
		ratio, err := payloadRatio(v)
		if err != nil {
			return UpdateParams{}, err
		}
		params.NewMinCollateralRatio = Some(ratio)
	}
	if v, ok := p.NewBaseFeeRate.Get(); ok {
		fee, err := payloadFeeRate(v)
		if err != nil {
			return UpdateParams{}, err
		}
		params.NewBaseFeeRate = Some(fee)
	}
	return params, nil
}

// payloadRatio and payloadFeeRate only reject values the record cannot hold.
// In range values are validated by the operation itself.
func payloadRatio(v int64) (uint16, error) {
	if v < 0 {
		return 0, invalidParameter("min_collateral_ratio", "must be >= 100", v)
	}
	if v > math.MaxUint16 {
		return 0, invalidParameter("min_collateral_ratio", "must be <= 65535", v)
	}
	return uint16(v), nil
}

func payloadFeeRate(v int64) (uint16, error) {
	if v < 0 || v > math.MaxUint16 {
		return 0, invalidParameter("base_fee_rate", "must be within [0, 10000]", v)
	}
	return uint16(v), nil
}

// ReserveParams is the payload of a reserve_stablecoin request.
type ReserveParams struct {
	Symbol string         `json:"symbol"`
	Args   map[string]any `json:"args,omitempty"`
}

// SigningMessage returns the bytes a request signature covers.
func SigningMessage(operation string, target Identity, payload []byte) []byte {
	msg := make([]byte, 0, len(operation)+1+IdentitySize+len(payload))
	msg = append(msg, operation...)
	msg = append(msg, 0)
	msg = append(msg, target[:]...)
	msg = append(msg, payload...)
	return msg
}

// SignRequest builds a request signed by key.
func SignRequest(key ed25519.PrivateKey, operation string, target Identity, payload []byte) (SignedRequest, error) {
	if len(key) != ed25519.PrivateKeySize {
		return SignedRequest{}, fmt.Errorf("factory: private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	signer, err := IdentityFromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return SignedRequest{}, err
	}
	return SignedRequest{
		Signer:    signer,
		Operation: operation,
		Target:    target,
		Payload:   append([]byte(nil), payload...),
		Signature: ed25519.Sign(key, SigningMessage(operation, target, payload)),
	}, nil
}

// Verify checks the signature against the signer identity.
func (r SignedRequest) Verify() error {
	if r.Signer.IsUnset() {
		return fmt.Errorf("%w: signer is unset", ErrInvalidSignature)
	}
	if len(r.Signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: expected %d byte signature, got %d", ErrInvalidSignature, ed25519.SignatureSize, len(r.Signature))
	}
	if !ed25519.Verify(r.Signer.PublicKey(), SigningMessage(r.Operation, r.Target, r.Payload), r.Signature) {
		return fmt.Errorf("%w: signature does not match signer %s", ErrInvalidSignature, r.Signer)
	}
	return nil
}

// updateAliases lets update payloads name fields the way the record does.
var updateAliases = map[string]string{
	"admin":                "new_admin",
	"min_collateral_ratio": "new_min_collateral_ratio",
	"base_fee_rate":        "new_base_fee_rate",
	"fee_recipient":        "new_fee_recipient",
}

var (
	initializeDecoder = hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[initializePayload]())
	updateDecoder     = hydrate.NewDecoder(
		hydrate.WithPreHook[updatePayload](hydrate.RenameKeys(updateAliases)),
		hydrate.WithDisallowUnknownFields[updatePayload](),
	)
	reserveDecoder = hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[ReserveParams]())
)

// Handle authenticates req, checks its target against the resolved address
// and dispatches it to the matching handler with the signer as caller.
// Payloads are JSON objects; pause and resume ignore theirs.
func (f *Factory) Handle(ctx context.Context, req SignedRequest) (Record, error) {
	start := time.Now()
	if err := req.Verify(); err != nil {
		return f.rejectRequest(req, start, err)
	}
	if !req.Target.IsUnset() && req.Target != f.address.Key {
		return f.rejectRequest(req, start, fmt.Errorf("%w: target %s, resolved %s", ErrAddressMismatch, req.Target, f.address.Key))
	}

	decodeCtx := hydrate.Context{Operation: req.Operation, Signer: req.Signer.String()}
	switch req.Operation {
	case OpInitialize:
		payload, err := initializeDecoder.DecodeBytes(decodeCtx, req.Payload)
		if err != nil {
			return f.rejectRequest(req, start, invalidPayload(req.Operation, err))
		}
		params, err := payload.params()
		if err != nil {
			return f.rejectRequest(req, start, err)
		}
		return f.Initialize(ctx, req.Signer, params.MinCollateralRatio, params.BaseFeeRate)
	case OpUpdate:
		payload, err := updateDecoder.DecodeBytes(decodeCtx, req.Payload)
		if err != nil {
			return f.rejectRequest(req, start, invalidPayload(req.Operation, err))
		}
		params, err := payload.params()
		if err != nil {
			return f.rejectRequest(req, start, err)
		}
		return f.Update(ctx, req.Signer, params)
	case OpPause:
		return f.Pause(ctx, req.Signer)
	case OpResume:
		return f.Resume(ctx, req.Signer)
	case OpReserve:
		params, err := reserveDecoder.DecodeBytes(decodeCtx, req.Payload)
		if err != nil {
			return f.rejectRequest(req, start, invalidPayload(req.Operation, err))
		}
		return f.ReserveStablecoin(ctx, CreationRequest{
			Requester: req.Signer,
			Symbol:    params.Symbol,
			Args:      params.Args,
		})
	default:
		return f.rejectRequest(req, start, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation))
	}
}

func (f *Factory) rejectRequest(req SignedRequest, start time.Time, err error) (Record, error) {
	f.logOperation(req.Operation, req.Signer, state.Meta{}, start, err, nil)
	return Record{}, err
}

func invalidPayload(operation string, err error) error {
	return invalidParameter("payload", err.Error(), operation)
}

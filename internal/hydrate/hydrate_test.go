package hydrate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type feeParams struct {
	MinCollateralRatio *uint16 `json:"min_collateral_ratio,omitempty"`
	BaseFeeRate        *uint16 `json:"base_fee_rate,omitempty"`
	Note               string  `json:"note,omitempty"`
}

func u16(v uint16) *uint16 { return &v }

var errNoteTooLong = errors.New("note too long")

func limitNote(_ Context, params *feeParams) error {
	if len(params.Note) > 8 {
		return errNoteTooLong
	}
	return nil
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		input     map[string]any
		options   []DecoderOption[feeParams]
		expect    feeParams
		expectErr string
	}{
		{
			name:   "numbers decode into unsigned fields",
			input:  map[string]any{"min_collateral_ratio": 150, "base_fee_rate": 30.0},
			expect: feeParams{MinCollateralRatio: u16(150), BaseFeeRate: u16(30)},
		},
		{
			name:   "absent keys stay nil",
			input:  map[string]any{"base_fee_rate": 0},
			expect: feeParams{BaseFeeRate: u16(0)},
		},
		{
			name:    "aliases are renamed before decoding",
			input:   map[string]any{"fee": 45, "ratio": 200},
			options: []DecoderOption[feeParams]{WithPreHook[feeParams](RenameKeys(map[string]string{"fee": "base_fee_rate", "ratio": "min_collateral_ratio"}))},
			expect:  feeParams{MinCollateralRatio: u16(200), BaseFeeRate: u16(45)},
		},
		{
			name:      "unknown keys rejected",
			input:     map[string]any{"base_fee_rate": 1, "admin": "x"},
			options:   []DecoderOption[feeParams]{WithDisallowUnknownFields[feeParams]()},
			expectErr: `unknown field "admin"`,
		},
		{
			name:      "negative value overflows unsigned field",
			input:     map[string]any{"base_fee_rate": -1},
			expectErr: "decode update payload",
		},
		{
			name:      "value beyond uint16 rejected",
			input:     map[string]any{"min_collateral_ratio": 70000},
			expectErr: "cannot unmarshal",
		},
		{
			name:      "post hook failure surfaces",
			input:     map[string]any{"note": "far too long"},
			options:   []DecoderOption[feeParams]{WithPostHook[feeParams](limitNote)},
			expectErr: "post-hook",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoder := NewDecoder[feeParams](tc.options...)
			result, err := decoder.Decode(Context{Operation: "update"}, tc.input)

			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded params mismatch:\nwant: %+v\n got: %+v", tc.expect, result)
			}
		})
	}
}

func TestDecodeDoesNotMutatePayload(t *testing.T) {
	input := map[string]any{"fee": 10}
	decoder := NewDecoder(WithPreHook[feeParams](RenameKeys(map[string]string{"fee": "base_fee_rate"})))
	if _, err := decoder.Decode(Context{Operation: "update"}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := input["fee"]; !ok {
		t.Fatalf("expected caller payload untouched, got %+v", input)
	}
}

func TestPostHookErrorUnwraps(t *testing.T) {
	decoder := NewDecoder(WithPostHook[feeParams](limitNote))
	_, err := decoder.Decode(Context{}, map[string]any{"note": "0123456789"})
	if !errors.Is(err, errNoteTooLong) {
		t.Fatalf("expected wrapped post hook error, got %v", err)
	}
}

func TestDecodeBytes(t *testing.T) {
	decoder := NewDecoder[feeParams]()

	empty, err := decoder.DecodeBytes(Context{Operation: "pause"}, nil)
	if err != nil {
		t.Fatalf("empty body: %v", err)
	}
	if !reflect.DeepEqual(empty, feeParams{}) {
		t.Fatalf("expected zero params, got %+v", empty)
	}

	got, err := decoder.DecodeBytes(Context{Operation: "update"}, []byte(`{"base_fee_rate": 25}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BaseFeeRate == nil || *got.BaseFeeRate != 25 {
		t.Fatalf("unexpected params: %+v", got)
	}

	if _, err := decoder.DecodeBytes(Context{Operation: "update"}, []byte(`[1,2]`)); err == nil || !strings.Contains(err.Error(), "parse update payload") {
		t.Fatalf("expected parse error for non-object body, got %v", err)
	}

	if _, err := decoder.Decode(Context{Operation: "init"}, nil); err == nil {
		t.Fatalf("expected nil payload error")
	}
}

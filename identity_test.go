package factory

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIdentityTextRoundTrip(t *testing.T) {
	key := newTestKey(t, 0x0a)
	text := key.id.String()

	parsed, err := ParseIdentity(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != key.id {
		t.Fatalf("expected %s, got %s", key.id, parsed)
	}
	if Unset.String() != "11111111111111111111111111111111" {
		t.Fatalf("unexpected unset text %q", Unset.String())
	}
	if !Unset.IsUnset() || key.id.IsUnset() {
		t.Fatalf("unexpected IsUnset results")
	}
}

func TestParseIdentityRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "0OIl", "3mJr7AoUXx2Wqd"} {
		if _, err := ParseIdentity(input); err == nil {
			t.Fatalf("expected %q to fail", input)
		}
	}
}

func TestOptionalJSON(t *testing.T) {
	var params UpdateParams
	payload := `{"new_admin":null,"new_base_fee_rate":0,"new_fee_recipient":"11111111111111111111111111111111"}`
	if err := json.Unmarshal([]byte(payload), &params); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if params.NewAdmin.IsSet() || params.NewMinCollateralRatio.IsSet() {
		t.Fatalf("expected null and missing fields to be absent")
	}
	if rate, ok := params.NewBaseFeeRate.Get(); !ok || rate != 0 {
		t.Fatalf("expected present zero fee, got %v", params.NewBaseFeeRate)
	}
	if recipient, ok := params.NewFeeRecipient.Get(); !ok || recipient != Unset {
		t.Fatalf("expected present unset recipient, got %v", params.NewFeeRecipient)
	}
	if diff := cmp.Diff([]string{"base_fee_rate", "fee_recipient"}, params.Changed()); diff != "" {
		t.Fatalf("changed mismatch (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(UpdateParams{NewBaseFeeRate: Some[uint16](5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"new_admin":null,"new_min_collateral_ratio":null,"new_base_fee_rate":5,"new_fee_recipient":null}`
	if string(out) != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}

func TestOptionalAccessors(t *testing.T) {
	absent := None[uint16]()
	if absent.IsSet() || absent.OrElse(7) != 7 || absent.String() != "<absent>" {
		t.Fatalf("unexpected absent behaviour: %v", absent)
	}
	present := Some[uint16](0)
	if !present.IsSet() || present.OrElse(7) != 0 || present.String() != "0" {
		t.Fatalf("unexpected present behaviour: %v", present)
	}
}

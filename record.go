package factory

const (
	// MinCollateralRatioFloor is the lowest accepted collateral ratio in
	// percentage points; 100 means exactly fully collateralized.
	MinCollateralRatioFloor = 100
	// MaxBaseFeeRate is the highest accepted fee rate in basis points.
	MaxBaseFeeRate = 10_000
)

// Record is the factory state singleton.
type Record struct {
	Admin              Identity `json:"admin"`
	MinCollateralRatio uint16   `json:"min_collateral_ratio"`
	BaseFeeRate        uint16   `json:"base_fee_rate"`
	FeeRecipient       Identity `json:"fee_recipient"`
	IsPaused           bool     `json:"is_paused"`
	TotalStablecoins   uint32   `json:"total_stablecoins"`
	// Nonce is the address search nonce; it lets readers recompute the
	// record's location without repeating the search.
	Nonce uint8 `json:"nonce"`
}

// Validate checks the record invariants. Field checks run in the same order
// the handlers apply them.
func (r Record) Validate() error {
	if r.Admin.IsUnset() {
		return invalidParameter("admin", "must be a non-null identity", r.Admin)
	}
	if err := validateMinCollateralRatio(r.MinCollateralRatio); err != nil {
		return err
	}
	return validateBaseFeeRate(r.BaseFeeRate)
}

// Snapshot flattens the record for rule evaluation. Numbers are int64 so
// every evaluator compares them against integer literals directly.
func (r Record) Snapshot() map[string]any {
	return map[string]any{
		"admin":              r.Admin.String(),
		"minCollateralRatio": int64(r.MinCollateralRatio),
		"baseFeeRate":        int64(r.BaseFeeRate),
		"feeRecipient":       r.FeeRecipient.String(),
		"isPaused":           r.IsPaused,
		"totalStablecoins":   int64(r.TotalStablecoins),
	}
}

func validateMinCollateralRatio(ratio uint16) error {
	if ratio < MinCollateralRatioFloor {
		return invalidParameter("min_collateral_ratio", "must be >= 100", ratio)
	}
	return nil
}

func validateBaseFeeRate(rate uint16) error {
	if rate > MaxBaseFeeRate {
		return invalidParameter("base_fee_rate", "must be within [0, 10000]", rate)
	}
	return nil
}

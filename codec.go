package factory

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// LayoutVersion is the persisted layout revision written after the
// discriminator.
const LayoutVersion = 1

const (
	discriminatorSize = 8
	reservedSize      = 32

	offsetVersion          = discriminatorSize
	offsetAdmin            = offsetVersion + 1
	offsetFeeRecipient     = offsetAdmin + IdentitySize
	offsetIsPaused         = offsetFeeRecipient + IdentitySize
	offsetMinCollateral    = offsetIsPaused + 1
	offsetBaseFeeRate      = offsetMinCollateral + 2
	offsetTotalStablecoins = offsetBaseFeeRate + 2
	offsetNonce            = offsetTotalStablecoins + 4
	offsetReserved         = offsetNonce + 1

	// RecordSize is the encoded width of a Record.
	RecordSize = offsetReserved + reservedSize
)

var recordDiscriminator = func() [discriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:FactoryState"))
	var out [discriminatorSize]byte
	copy(out[:], sum[:discriminatorSize])
	return out
}()

// FieldLayout describes one fixed-width field of the persisted record.
type FieldLayout struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Width  int    `json:"width"`
}

// RecordLayout returns the persisted field table in encoding order. All
// integers are little-endian.
func RecordLayout() []FieldLayout {
	return []FieldLayout{
		{Name: "discriminator", Type: "[8]byte", Offset: 0, Width: discriminatorSize},
		{Name: "layout_version", Type: "uint8", Offset: offsetVersion, Width: 1},
		{Name: "admin", Type: "identity", Offset: offsetAdmin, Width: IdentitySize},
		{Name: "fee_recipient", Type: "identity", Offset: offsetFeeRecipient, Width: IdentitySize},
		{Name: "is_paused", Type: "bool", Offset: offsetIsPaused, Width: 1},
		{Name: "min_collateral_ratio", Type: "uint16", Offset: offsetMinCollateral, Width: 2},
		{Name: "base_fee_rate", Type: "uint16", Offset: offsetBaseFeeRate, Width: 2},
		{Name: "total_stablecoins", Type: "uint32", Offset: offsetTotalStablecoins, Width: 4},
		{Name: "nonce", Type: "uint8", Offset: offsetNonce, Width: 1},
		{Name: "reserved", Type: "[32]byte", Offset: offsetReserved, Width: reservedSize},
	}
}

// MarshalBinary encodes r in the fixed layout.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	copy(buf[:discriminatorSize], recordDiscriminator[:])
	buf[offsetVersion] = LayoutVersion
	copy(buf[offsetAdmin:], r.Admin[:])
	copy(buf[offsetFeeRecipient:], r.FeeRecipient[:])
	if r.IsPaused {
		buf[offsetIsPaused] = 1
	}
	binary.LittleEndian.PutUint16(buf[offsetMinCollateral:], r.MinCollateralRatio)
	binary.LittleEndian.PutUint16(buf[offsetBaseFeeRate:], r.BaseFeeRate)
	binary.LittleEndian.PutUint32(buf[offsetTotalStablecoins:], r.TotalStablecoins)
	buf[offsetNonce] = r.Nonce
	return buf, nil
}

// UnmarshalBinary decodes the fixed layout, rejecting foreign or damaged data.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrCorruptRecord, RecordSize, len(data))
	}
	if [discriminatorSize]byte(data[:discriminatorSize]) != recordDiscriminator {
		return fmt.Errorf("%w: discriminator mismatch", ErrCorruptRecord)
	}
	if data[offsetVersion] != LayoutVersion {
		return fmt.Errorf("%w: unsupported layout version %d", ErrCorruptRecord, data[offsetVersion])
	}
	var out Record
	copy(out.Admin[:], data[offsetAdmin:offsetAdmin+IdentitySize])
	copy(out.FeeRecipient[:], data[offsetFeeRecipient:offsetFeeRecipient+IdentitySize])
	switch data[offsetIsPaused] {
	case 0:
	case 1:
		out.IsPaused = true
	default:
		return fmt.Errorf("%w: is_paused byte %d", ErrCorruptRecord, data[offsetIsPaused])
	}
	out.MinCollateralRatio = binary.LittleEndian.Uint16(data[offsetMinCollateral:])
	out.BaseFeeRate = binary.LittleEndian.Uint16(data[offsetBaseFeeRate:])
	out.TotalStablecoins = binary.LittleEndian.Uint32(data[offsetTotalStablecoins:])
	out.Nonce = data[offsetNonce]
	*r = out
	return nil
}

// RecordCodec adapts the binary layout to state.Codec[Record].
type RecordCodec struct{}

func (RecordCodec) Encode(rec Record) ([]byte, error) {
	return rec.MarshalBinary()
}

func (RecordCodec) Decode(data []byte) (Record, error) {
	var rec Record
	if err := rec.UnmarshalBinary(data); err != nil {
		return Record{}, err
	}
	return rec, nil
}

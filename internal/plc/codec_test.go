// internal/plc/codec_test.go
package plc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		spec  FieldSpec
		value any
	}{
		{"bool true", FieldSpec{Name: "b", Type: TypeBool, ByteOffset: 0, BitOffset: 3}, true},
		{"bool false", FieldSpec{Name: "b", Type: TypeBool, ByteOffset: 0, BitOffset: 7}, false},
		{"byte", FieldSpec{Name: "by", Type: TypeByte, ByteOffset: 1}, uint8(0xAB)},
		{"word", FieldSpec{Name: "w", Type: TypeWord, ByteOffset: 2}, uint16(0xBEEF)},
		{"int positive", FieldSpec{Name: "i", Type: TypeInt, ByteOffset: 2}, int16(12345)},
		{"int negative", FieldSpec{Name: "i", Type: TypeInt, ByteOffset: 2}, int16(-12345)},
		{"dword", FieldSpec{Name: "dw", Type: TypeDWord, ByteOffset: 4}, uint32(0xDEADBEEF)},
		{"dint negative", FieldSpec{Name: "di", Type: TypeDInt, ByteOffset: 4}, int32(-123456789)},
		{"real", FieldSpec{Name: "r", Type: TypeReal, ByteOffset: 4}, float32(50.25)},
		{"real negative", FieldSpec{Name: "r", Type: TypeReal, ByteOffset: 4}, float32(-0.125)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, 8)
			encodeField(tc.spec, buf, tc.value)
			assert.Equal(t, tc.value, decodeField(tc.spec, buf))
		})
	}
}

func TestCodecBoolBitIsolation(t *testing.T) {
	// Flipping one bit must leave the seven siblings untouched,
	// whatever their current pattern.
	for bit := uint8(0); bit < 8; bit++ {
		spec := FieldSpec{Name: "b", Type: TypeBool, ByteOffset: 0, BitOffset: bit}

		for _, pattern := range []byte{0x00, 0xFF, 0x55, 0xAA, 0x42} {
			for _, v := range []bool{true, false} {
				buf := []byte{pattern}
				encodeField(spec, buf, v)

				mask := byte(1) << bit
				assert.Equal(t, pattern&^mask, buf[0]&^mask,
					"bit %d value %v on pattern %#02x", bit, v, pattern)
				assert.Equal(t, v, decodeField(spec, buf))
			}
		}
	}
}

func TestCodecBigEndianLayout(t *testing.T) {
	buf := make([]byte, 4)

	encodeField(FieldSpec{Name: "w", Type: TypeWord, ByteOffset: 0}, buf, uint16(0x0102))
	assert.Equal(t, []byte{0x01, 0x02, 0x00, 0x00}, buf)

	encodeField(FieldSpec{Name: "r", Type: TypeReal, ByteOffset: 0}, buf, float32(50.25))
	assert.Equal(t, []byte{0x42, 0x49, 0x00, 0x00}, buf)

	encodeField(FieldSpec{Name: "di", Type: TypeDInt, ByteOffset: 0}, buf, int32(-1))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, buf)
}

func TestCoerceValueAcceptsGenericNumerics(t *testing.T) {
	// JSON bindings hand over float64; config files hand over int.
	v, err := coerceValue(TypeWord, float64(100))
	require.NoError(t, err)
	assert.Equal(t, uint16(100), v)

	v, err = coerceValue(TypeInt, -42)
	require.NoError(t, err)
	assert.Equal(t, int16(-42), v)

	v, err = coerceValue(TypeReal, 3)
	require.NoError(t, err)
	assert.Equal(t, float32(3), v)

	v, err = coerceValue(TypeDWord, int64(4294967295))
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), v)
}

func TestCoerceValueRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		tag   TypeTag
		value any
	}{
		{TypeByte, 256},
		{TypeByte, -1},
		{TypeWord, 65536},
		{TypeWord, -1},
		{TypeInt, 32768},
		{TypeInt, -32769},
		{TypeDWord, -1},
		{TypeDInt, int64(2147483648)},
		{TypeWord, 1.5},
		{TypeBool, 1},
		{TypeReal, "hot"},
	}

	for _, tc := range cases {
		_, err := coerceValue(tc.tag, tc.value)
		assert.ErrorIs(t, err, ErrTypeMismatch, "%s <- %v", tc.tag, tc.value)
	}
}

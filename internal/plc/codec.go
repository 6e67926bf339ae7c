// internal/plc/codec.go
package plc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// The codec maps between decoded Go values and big-endian byte spans,
// matching the S7 data block convention. Decoded values carry fixed
// Go types per tag: BOOL=bool, BYTE=uint8, WORD=uint16, INT=int16,
// DWORD=uint32, DINT=int32, REAL=float32.
//
// Range checks happen at schema construction (field positions) and on
// assignment (value coercion); decode and encode assume both.

// decodeField reads the field value out of a full buffer image
func decodeField(f FieldSpec, data []byte) any {
	switch f.Type {
	case TypeBool:
		return (data[f.ByteOffset]>>f.BitOffset)&0x01 == 1
	case TypeByte:
		return data[f.ByteOffset]
	case TypeWord:
		return binary.BigEndian.Uint16(data[f.ByteOffset:])
	case TypeInt:
		return int16(binary.BigEndian.Uint16(data[f.ByteOffset:]))
	case TypeDWord:
		return binary.BigEndian.Uint32(data[f.ByteOffset:])
	case TypeDInt:
		return int32(binary.BigEndian.Uint32(data[f.ByteOffset:]))
	case TypeReal:
		return math.Float32frombits(binary.BigEndian.Uint32(data[f.ByteOffset:]))
	default:
		return nil
	}
}

// encodeField writes a coerced value into the buffer in place. For
// BOOL the addressed bit is cleared then ORed, so the seven sibling
// bits packed in the same byte are never disturbed.
func encodeField(f FieldSpec, buf []byte, value any) {
	switch f.Type {
	case TypeBool:
		mask := byte(1) << f.BitOffset
		if value.(bool) {
			buf[f.ByteOffset] |= mask
		} else {
			buf[f.ByteOffset] &^= mask
		}
	case TypeByte:
		buf[f.ByteOffset] = value.(uint8)
	case TypeWord:
		binary.BigEndian.PutUint16(buf[f.ByteOffset:], value.(uint16))
	case TypeInt:
		binary.BigEndian.PutUint16(buf[f.ByteOffset:], uint16(value.(int16)))
	case TypeDWord:
		binary.BigEndian.PutUint32(buf[f.ByteOffset:], value.(uint32))
	case TypeDInt:
		binary.BigEndian.PutUint32(buf[f.ByteOffset:], uint32(value.(int32)))
	case TypeReal:
		binary.BigEndian.PutUint32(buf[f.ByteOffset:], math.Float32bits(value.(float32)))
	}
}

// coerceValue validates an assignment against the field type and
// normalizes it to the codec's canonical Go type. Numeric inputs may
// arrive as any Go integer or float kind (JSON bindings deliver
// float64); they must be in range and, for integer tags, integral.
func coerceValue(t TypeTag, value any) (any, error) {
	switch t {
	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: BOOL wants a bool, got %T", ErrTypeMismatch, value)
		}
		return b, nil

	case TypeReal:
		f, ok := toFloat64(value)
		if !ok {
			return nil, fmt.Errorf("%w: REAL wants a number, got %T", ErrTypeMismatch, value)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("%w: REAL must be finite", ErrTypeMismatch)
		}
		f32 := float32(f)
		if math.IsInf(float64(f32), 0) {
			return nil, fmt.Errorf("%w: %v overflows REAL", ErrTypeMismatch, f)
		}
		return f32, nil

	case TypeByte, TypeWord, TypeInt, TypeDWord, TypeDInt:
		i, ok := toInt64(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants an integer, got %T", ErrTypeMismatch, t, value)
		}
		lo, hi := integerBounds(t)
		if i < lo || i > hi {
			return nil, fmt.Errorf("%w: %d outside %s range [%d, %d]", ErrTypeMismatch, i, t, lo, hi)
		}
		switch t {
		case TypeByte:
			return uint8(i), nil
		case TypeWord:
			return uint16(i), nil
		case TypeInt:
			return int16(i), nil
		case TypeDWord:
			return uint32(i), nil
		default:
			return int32(i), nil
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
}

// integerBounds returns the inclusive value range of an integer tag
func integerBounds(t TypeTag) (int64, int64) {
	switch t {
	case TypeByte:
		return 0, math.MaxUint8
	case TypeWord:
		return 0, math.MaxUint16
	case TypeInt:
		return math.MinInt16, math.MaxInt16
	case TypeDWord:
		return 0, math.MaxUint32
	default: // DINT
		return math.MinInt32, math.MaxInt32
	}
}

// toInt64 converts any integer kind, or an integral float, to int64
func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.Trunc(f) != f || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// toFloat64 converts any numeric kind to float64
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		i, ok := toInt64(value)
		if !ok {
			return 0, false
		}
		return float64(i), true
	}
}

package dtype

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// Class is the widened category a loaded element falls into.
type Class uint8

const (
	ClassBool Class = iota
	ClassSigned
	ClassUnsigned
	ClassFloat
)

// Scalar holds one element widened to 64 bits. Only the field matching
// Class is meaningful; ClassBool uses U (0 or 1).
type Scalar struct {
	Class Class
	I     int64
	U     uint64
	F     float64
}

// Truth reports whether the value is non-zero.
func (s Scalar) Truth() bool {
	switch s.Class {
	case ClassSigned:
		return s.I != 0
	case ClassFloat:
		return s.F != 0
	default:
		return s.U != 0
	}
}

func (s Scalar) asInt() int64 {
	switch s.Class {
	case ClassSigned:
		return s.I
	case ClassFloat:
		return int64(s.F)
	default:
		return int64(s.U)
	}
}

func (s Scalar) asUint() uint64 {
	switch s.Class {
	case ClassSigned:
		return uint64(s.I)
	case ClassFloat:
		if s.F < 0 {
			return uint64(int64(s.F))
		}
		return uint64(s.F)
	default:
		return s.U
	}
}

func (s Scalar) asFloat() float64 {
	switch s.Class {
	case ClassSigned:
		return float64(s.I)
	case ClassFloat:
		return s.F
	default:
		return float64(s.U)
	}
}

// Load reads one little-endian element of kind k from b.
// A Mask element loads as its exposed bit.
func Load(k Kind, b []byte) Scalar {
	le := binary.LittleEndian
	switch k {
	case Bool:
		return boolScalar(b[0] != 0)
	case Mask:
		return boolScalar(MaskExposed(b[0]))
	case Int8:
		return Scalar{Class: ClassSigned, I: int64(int8(b[0]))}
	case Uint8:
		return Scalar{Class: ClassUnsigned, U: uint64(b[0])}
	case Int16:
		return Scalar{Class: ClassSigned, I: int64(int16(le.Uint16(b)))}
	case Uint16:
		return Scalar{Class: ClassUnsigned, U: uint64(le.Uint16(b))}
	case Int32:
		return Scalar{Class: ClassSigned, I: int64(int32(le.Uint32(b)))}
	case Uint32:
		return Scalar{Class: ClassUnsigned, U: uint64(le.Uint32(b))}
	case Int64:
		return Scalar{Class: ClassSigned, I: int64(le.Uint64(b))}
	case Uint64:
		return Scalar{Class: ClassUnsigned, U: le.Uint64(b)}
	case Float16:
		return Scalar{Class: ClassFloat, F: float64(float16.Frombits(le.Uint16(b)).Float32())}
	case BFloat16:
		return Scalar{Class: ClassFloat, F: float64(bf16ToF32(le.Uint16(b)))}
	case Float32:
		return Scalar{Class: ClassFloat, F: float64(math.Float32frombits(le.Uint32(b)))}
	case Float64:
		return Scalar{Class: ClassFloat, F: math.Float64frombits(le.Uint64(b))}
	default:
		panic("dtype: load of unsupported kind " + k.String())
	}
}

// Store writes s into b as one little-endian element of kind k, using C
// conversion rules (truncation toward zero, wrap-around on narrowing).
func Store(k Kind, b []byte, s Scalar) {
	le := binary.LittleEndian
	switch k {
	case Bool:
		b[0] = boolByte(s.Truth())
	case Mask:
		b[0] = MaskCreate(s.Truth(), 0)
	case Int8:
		b[0] = byte(int8(s.asInt()))
	case Uint8:
		b[0] = byte(s.asUint())
	case Int16:
		le.PutUint16(b, uint16(int16(s.asInt())))
	case Uint16:
		le.PutUint16(b, uint16(s.asUint()))
	case Int32:
		le.PutUint32(b, uint32(int32(s.asInt())))
	case Uint32:
		le.PutUint32(b, uint32(s.asUint()))
	case Int64:
		le.PutUint64(b, uint64(s.asInt()))
	case Uint64:
		le.PutUint64(b, s.asUint())
	case Float16:
		le.PutUint16(b, float16.Fromfloat32(float32(s.asFloat())).Bits())
	case BFloat16:
		le.PutUint16(b, bf16FromF32Bits(math.Float32bits(float32(s.asFloat()))))
	case Float32:
		le.PutUint32(b, math.Float32bits(float32(s.asFloat())))
	case Float64:
		le.PutUint64(b, math.Float64bits(s.asFloat()))
	default:
		panic("dtype: store of unsupported kind " + k.String())
	}
}

func boolScalar(v bool) Scalar {
	return Scalar{Class: ClassBool, U: uint64(boolByte(v))}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func bf16ToF32(u uint16) float32 {
	return math.Float32frombits(uint32(u) << 16)
}

// bf16FromF32Bits rounds to nearest-even on the truncated 16 bits.
func bf16FromF32Bits(u uint32) uint16 {
	if u&0x7FFFFFFF > 0x7F800000 {
		return uint16(u>>16) | 0x40
	}
	rnd := uint32(0x7FFF + ((u >> 16) & 1))
	return uint16((u + rnd) >> 16)
}

// Package cast converts strided element buffers between element types.
package cast

import (
	"errors"
	"fmt"

	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/dtype"
)

var (
	ErrUnsupportedCast = errors.New("cast: unsupported conversion")
	ErrOutOfBounds     = errors.New("cast: operand out of bounds")
	ErrRank            = errors.New("cast: rank mismatch")
)

// Operand is one side of a strided cast. Offset is the byte position of
// logical element zero in Buf, which lets negative strides stay inside Buf.
type Operand struct {
	Buf     []byte
	Offset  int
	Strides []int
	Type    dtype.Descr
}

// Caster converts elements from src to dst, element by element, honoring
// both operands' strides and types.
type Caster interface {
	// Cast1D converts n elements along a single dimension. Only
	// Strides[0] of each operand is used.
	Cast1D(n int, src, dst Operand) error
	// CastND converts every element of shape.
	CastND(shape []int, src, dst Operand) error
}

// Converter is the default Caster. It widens each element through
// dtype.Scalar, so any pair of plain kinds converts. Structured types are
// refused.
type Converter struct{}

var _ Caster = Converter{}

func (c Converter) Cast1D(n int, src, dst Operand) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d", ErrOutOfBounds, n)
	}
	if len(src.Strides) < 1 || len(dst.Strides) < 1 {
		return fmt.Errorf("%w: 1-d cast needs one stride per operand", ErrRank)
	}
	s, d := src, dst
	s.Strides, d.Strides = src.Strides[:1], dst.Strides[:1]
	return c.CastND([]int{n}, s, d)
}

func (Converter) CastND(shape []int, src, dst Operand) error {
	if len(src.Strides) != len(shape) || len(dst.Strides) != len(shape) {
		return fmt.Errorf("%w: shape has %d dims, strides %d and %d", ErrRank, len(shape), len(src.Strides), len(dst.Strides))
	}
	conv, err := converterFor(src.Type, dst.Type)
	if err != nil {
		return err
	}
	if strided.Size(shape) == 0 {
		return nil
	}
	if !strided.InBounds(len(src.Buf), src.Offset, shape, src.Strides, src.Type.Size()) {
		return fmt.Errorf("%w: source", ErrOutOfBounds)
	}
	if !strided.InBounds(len(dst.Buf), dst.Offset, shape, dst.Strides, dst.Type.Size()) {
		return fmt.Errorf("%w: destination", ErrOutOfBounds)
	}

	nd := len(shape)
	if nd == 0 {
		conv(dst.Buf[dst.Offset:], src.Buf[src.Offset:])
		return nil
	}

	idx := make([]int, nd)
	so, do := src.Offset, dst.Offset
	inner := nd - 1
	ss, ds := src.Strides[inner], dst.Strides[inner]
	for {
		s, d := so, do
		for i := 0; i < shape[inner]; i++ {
			conv(dst.Buf[d:], src.Buf[s:])
			s += ss
			d += ds
		}

		k := inner - 1
		for ; k >= 0; k-- {
			idx[k]++
			so += src.Strides[k]
			do += dst.Strides[k]
			if idx[k] < shape[k] {
				break
			}
			so -= src.Strides[k] * shape[k]
			do -= dst.Strides[k] * shape[k]
			idx[k] = 0
		}
		if k < 0 {
			return nil
		}
	}
}

type elemFunc func(dst, src []byte)

func converterFor(from, to dtype.Descr) (elemFunc, error) {
	if from.HasFields() || to.HasFields() {
		return nil, fmt.Errorf("%w: %v to %v", ErrUnsupportedCast, from, to)
	}
	if from.Size() == 0 || to.Size() == 0 {
		return nil, fmt.Errorf("%w: %v to %v", ErrUnsupportedCast, from, to)
	}
	if from.Kind == to.Kind {
		size := from.Size()
		return func(dst, src []byte) {
			copy(dst[:size], src[:size])
		}, nil
	}
	fk, tk := from.Kind, to.Kind
	if dtype.IsMaskType(from) && dtype.IsMaskType(to) {
		return func(dst, src []byte) {
			dst[0] = dtype.ConvertMaskCell(fk, tk, src[0])
		}, nil
	}
	return func(dst, src []byte) {
		dtype.Store(tk, dst, dtype.Load(fk, src))
	}, nil
}

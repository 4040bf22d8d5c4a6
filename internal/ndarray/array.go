// Package ndarray implements strided N-dimensional arrays with an optional
// per-element NA mask.
//
// The mask lives in its own buffer with its own strides. An array either
// has no mask, borrows one from another array (views), or owns one. Only
// AcquireMask moves an array into the owned state, and it does so with a
// single assignment once the new mask is fully built.
package ndarray

import (
	"fmt"
	"slices"

	"github.com/samcharles93/namask/internal/alloc"
	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/dtype"
)

type Array struct {
	shape   []int
	strides []int
	dtype   dtype.Descr
	data    []byte
	offset  int
	mask    maskField
}

// Option configures an array at construction.
type Option func(*Array) error

// New allocates a zeroed C-contiguous array.
func New(dt dtype.Descr, shape []int, opts ...Option) (*Array, error) {
	if dt.Size() == 0 {
		return nil, fmt.Errorf("%w: %v", dtype.ErrUnknownType, dt)
	}
	if err := strided.CheckExtent(shape, dt.Size()); err != nil {
		return nil, err
	}
	data, ok := alloc.Heap{}.Alloc(strided.Size(shape) * dt.Size())
	if !ok {
		return nil, ErrOutOfMemory
	}
	return NewStrided(dt, shape, strided.ContiguousStrides(shape, dt.Size()), data, 0, opts...)
}

// NewStrided wraps an existing buffer. offset is the byte position of
// element zero; strides may be negative as long as every element stays
// inside data.
func NewStrided(dt dtype.Descr, shape, strides []int, data []byte, offset int, opts ...Option) (*Array, error) {
	if err := strided.CheckShape(shape); err != nil {
		return nil, err
	}
	if len(strides) != len(shape) {
		return nil, fmt.Errorf("%w: %d strides for %d dimensions", strided.ErrRank, len(strides), len(shape))
	}
	if dt.Size() == 0 {
		return nil, fmt.Errorf("%w: %v", dtype.ErrUnknownType, dt)
	}
	if !strided.InBounds(len(data), offset, shape, strides, dt.Size()) {
		return nil, ErrDataBounds
	}
	a := &Array{
		shape:   slices.Clone(shape),
		strides: slices.Clone(strides),
		dtype:   dt,
		data:    data,
		offset:  offset,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Array) NDim() int { return len(a.shape) }

// Size returns the element count.
func (a *Array) Size() int { return strided.Size(a.shape) }

func (a *Array) Shape() []int { return slices.Clone(a.shape) }

func (a *Array) Strides() []int { return slices.Clone(a.strides) }

func (a *Array) DType() dtype.Descr { return a.dtype }

// Data returns the underlying buffer and the offset of element zero.
func (a *Array) Data() ([]byte, int) { return a.data, a.offset }

// Transpose returns a view with axes reordered. The view shares the data
// buffer and borrows the mask, if any.
func (a *Array) Transpose(axes ...int) (*Array, error) {
	if len(axes) == 0 {
		axes = make([]int, a.NDim())
		for i := range axes {
			axes[i] = a.NDim() - 1 - i
		}
	}
	shape, strides, err := strided.Permute(a.shape, a.strides, axes)
	if err != nil {
		return nil, err
	}
	v := &Array{shape: shape, strides: strides, dtype: a.dtype, data: a.data, offset: a.offset}
	if a.mask.state != MaskNone {
		_, mstrides, err := strided.Permute(a.shape, a.mask.strides, axes)
		if err != nil {
			return nil, err
		}
		v.mask = a.mask.borrow()
		v.mask.strides = mstrides
	}
	return v, nil
}

// Reverse returns a view that walks axis backwards, giving it a negative
// stride. The mask, if any, is borrowed and reversed the same way.
func (a *Array) Reverse(axis int) (*Array, error) {
	if axis < 0 || axis >= a.NDim() {
		return nil, fmt.Errorf("%w: axis %d for %d dimensions", strided.ErrAxis, axis, a.NDim())
	}
	v := &Array{
		shape:   slices.Clone(a.shape),
		strides: slices.Clone(a.strides),
		dtype:   a.dtype,
		data:    a.data,
		offset:  a.offset,
	}
	n := a.shape[axis]
	if n > 0 {
		v.offset += (n - 1) * a.strides[axis]
	}
	v.strides[axis] = -a.strides[axis]
	if a.mask.state != MaskNone {
		v.mask = a.mask.borrow()
		v.mask.strides = slices.Clone(a.mask.strides)
		if n > 0 {
			v.mask.offset += (n - 1) * a.mask.strides[axis]
		}
		v.mask.strides[axis] = -a.mask.strides[axis]
	}
	return v, nil
}

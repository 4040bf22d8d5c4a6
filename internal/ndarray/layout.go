package ndarray

import (
	"fmt"

	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/dtype"
)

// Layout is the mask layout AcquireMask would build for a given array.
type Layout struct {
	// Order lists dimensions from fastest- to slowest-varying in the data.
	Order       []int
	MaskType    dtype.Descr
	MaskStrides []int
	MaskBytes   int
}

// PlanLayout computes the mask layout for an array of the given shape and
// data strides without allocating anything.
func PlanLayout(shape, dataStrides []int, multi bool) (Layout, error) {
	if err := strided.CheckShape(shape); err != nil {
		return Layout{}, err
	}
	if len(dataStrides) != len(shape) {
		return Layout{}, fmt.Errorf("%w: %d strides for %d dimensions", strided.ErrRank, len(dataStrides), len(shape))
	}
	mt := dtype.Of(dtype.Bool)
	if multi {
		mt = dtype.Of(dtype.Mask)
	}
	n, ok := maskBytes(strided.Size(shape), mt.Size())
	if !ok {
		return Layout{}, ErrOutOfMemory
	}
	l := Layout{MaskType: mt, MaskBytes: n}
	switch len(shape) {
	case 0:
		l.Order = []int{}
		l.MaskStrides = []int{}
	case 1:
		l.Order = []int{0}
		l.MaskStrides = []int{mt.Size()}
	default:
		l.Order = strided.SortedStridePerm(dataStrides)
		l.MaskStrides = strided.LayoutStrides(shape, l.Order, mt.Size())
	}
	return l, nil
}

// Package strided holds shape and stride arithmetic shared by arrays,
// masks and the cast routines.
//
// Strides are signed byte steps, one per dimension.
package strided

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"fortio.org/safecast"
)

var (
	ErrRank        = errors.New("strided: rank mismatch")
	ErrIndexRange  = errors.New("strided: index out of range")
	ErrNegativeDim = errors.New("strided: negative dimension")
	ErrAxis        = errors.New("strided: invalid axis")
	ErrOverflow    = errors.New("strided: extent overflows int")
)

// Size returns the number of elements described by shape. A 0-d shape
// has one element.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// CheckShape rejects negative dimensions and shapes whose element count
// does not fit in an int.
func CheckShape(shape []int) error {
	return CheckExtent(shape, 1)
}

// CheckExtent is CheckShape for elements of elsize bytes. Zero-length
// dimensions are skipped, so once it passes neither Size, ContiguousStrides
// nor LayoutStrides can wrap.
func CheckExtent(shape []int, elsize int) error {
	for i, d := range shape {
		if d < 0 {
			return fmt.Errorf("%w: dim %d is %d", ErrNegativeDim, i, d)
		}
	}
	n := elsize
	for _, d := range shape {
		if d == 0 {
			continue
		}
		var ok bool
		if n, ok = mul(n, d); !ok {
			return fmt.Errorf("%w: shape %v of %d-byte elements", ErrOverflow, shape, elsize)
		}
	}
	return nil
}

// ContiguousStrides returns C-order (row-major) strides for shape.
func ContiguousStrides(shape []int, elsize int) []int {
	strides := make([]int, len(shape))
	stride := elsize
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		if shape[i] > 0 {
			stride *= shape[i]
		}
	}
	return strides
}

// SortedStridePerm orders dimensions from fastest-varying (smallest
// absolute stride) to slowest. Equal strides keep C order, so the higher
// dimension index is treated as the faster one.
func SortedStridePerm(strides []int) []int {
	perm := make([]int, len(strides))
	for i := range perm {
		perm[i] = len(strides) - 1 - i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return abs(strides[perm[a]]) < abs(strides[perm[b]])
	})
	return perm
}

// LayoutStrides assigns fresh strides to shape so that perm[0] is the
// innermost dimension with stride elsize, and each following dimension in
// perm steps over the whole block of the previous one.
func LayoutStrides(shape, perm []int, elsize int) []int {
	strides := make([]int, len(shape))
	stride := elsize
	for _, dim := range perm {
		strides[dim] = stride
		stride *= shape[dim]
	}
	return strides
}

// Offset returns the byte offset of idx relative to element zero.
func Offset(idx, strides []int) int {
	off := 0
	for i, v := range idx {
		off += v * strides[i]
	}
	return off
}

// CheckIndex validates idx against shape.
func CheckIndex(shape, idx []int) error {
	if len(idx) != len(shape) {
		return fmt.Errorf("%w: got %d indices for %d dimensions", ErrRank, len(idx), len(shape))
	}
	for i, v := range idx {
		if v < 0 || v >= shape[i] {
			return fmt.Errorf("%w: index %d is %d for size %d", ErrIndexRange, i, v, shape[i])
		}
	}
	return nil
}

// Span returns the byte range [lo, hi) touched by an array relative to
// element zero. Empty arrays span nothing. It fails with ErrOverflow when
// the range does not fit in an int.
func Span(shape, strides []int, elsize int) (lo, hi int, err error) {
	if err := CheckShape(shape); err != nil {
		return 0, 0, err
	}
	if Size(shape) == 0 {
		return 0, 0, nil
	}
	for i, d := range shape {
		step, ok := mul(d-1, abs(strides[i]))
		if ok && strides[i] < 0 {
			lo, ok = add(lo, -step)
		} else if ok {
			hi, ok = add(hi, step)
		}
		if !ok {
			return 0, 0, fmt.Errorf("%w: dim %d of %d with stride %d", ErrOverflow, i, d, strides[i])
		}
	}
	end, ok := add(hi, elsize)
	if !ok || end-lo < 0 {
		return 0, 0, fmt.Errorf("%w: span [%d,%d)", ErrOverflow, lo, end)
	}
	return lo, end, nil
}

// InBounds reports whether an array rooted at offset fits in a buffer of
// length n. Arrays whose span overflows never fit.
func InBounds(n, offset int, shape, strides []int, elsize int) bool {
	lo, hi, err := Span(shape, strides, elsize)
	if err != nil {
		return false
	}
	if lo == hi {
		return true
	}
	start, ok1 := add(offset, lo)
	end, ok2 := add(offset, hi)
	return ok1 && ok2 && start >= 0 && end <= n
}

// NextIndex advances idx over shape in C order and reports whether a
// next index exists.
func NextIndex(idx, shape []int) bool {
	for k := len(idx) - 1; k >= 0; k-- {
		idx[k]++
		if idx[k] < shape[k] {
			return true
		}
		idx[k] = 0
	}
	return false
}

// Permute reorders shape and strides by axes.
func Permute(shape, strides, axes []int) ([]int, []int, error) {
	if len(axes) != len(shape) {
		return nil, nil, fmt.Errorf("%w: axes length %d != ndim %d", ErrAxis, len(axes), len(shape))
	}
	seen := make([]bool, len(axes))
	for _, a := range axes {
		if a < 0 || a >= len(shape) {
			return nil, nil, fmt.Errorf("%w: axis %d out of range for %d dimensions", ErrAxis, a, len(shape))
		}
		if seen[a] {
			return nil, nil, fmt.Errorf("%w: duplicate axis %d", ErrAxis, a)
		}
		seen[a] = true
	}
	newShape := make([]int, len(shape))
	newStrides := make([]int, len(strides))
	for i, a := range axes {
		newShape[i] = shape[a]
		newStrides[i] = strides[a]
	}
	return newShape, newStrides, nil
}

// mul returns a*b for non-negative a and b, or false when the product does
// not fit in an int.
func mul(a, b int) (int, bool) {
	ua, err := safecast.Conv[uint64](a)
	if err != nil {
		return 0, false
	}
	ub, err := safecast.Conv[uint64](b)
	if err != nil {
		return 0, false
	}
	hi, lo := bits.Mul64(ua, ub)
	if hi != 0 {
		return 0, false
	}
	n, err := safecast.Conv[int](lo)
	if err != nil {
		return 0, false
	}
	return n, true
}

func add(a, b int) (int, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

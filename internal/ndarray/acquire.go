package ndarray

import (
	"fmt"
	"math/bits"

	"fortio.org/safecast"

	"github.com/samcharles93/namask/internal/alloc"
	"github.com/samcharles93/namask/internal/logger"
	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/cast"
	"github.com/samcharles93/namask/pkg/dtype"
)

// Acquirer allocates NA masks. The zero value uses the Go heap, the
// default element converter and discards logs.
type Acquirer struct {
	Alloc alloc.Allocator
	Cast  cast.Caster
	Log   logger.Logger
}

var defaultAcquirer = &Acquirer{}

// AcquireMask makes sure a has an NA mask, using the default Acquirer.
func AcquireMask(a *Array, own, multi bool) error {
	return defaultAcquirer.Acquire(a, own, multi)
}

// AcquireMask is shorthand for AcquireMask(a, own, multi).
func (a *Array) AcquireMask(own, multi bool) error {
	return AcquireMask(a, own, multi)
}

// Acquire makes sure a has an NA mask.
//
// An array that already owns a mask is left alone, as is one with any mask
// when own is false. Otherwise a new buffer is allocated with a layout that
// follows the data's memory order, any existing mask is copied into it, and
// the array switches to the new, owned mask. multi selects the
// multi-valued mask type instead of bool.
//
// On error a is unchanged.
func (q *Acquirer) Acquire(a *Array, own, multi bool) error {
	switch a.mask.state {
	case MaskOwned:
		return nil
	case MaskBorrowed:
		if !own {
			return nil
		}
	}

	if a.dtype.HasFields() {
		return &MaskError{Op: "acquire mask", Err: ErrUnsupportedElementType}
	}

	mt := dtype.Of(dtype.Bool)
	if multi {
		mt = dtype.Of(dtype.Mask)
	}

	nbytes, ok := maskBytes(a.Size(), mt.Size())
	if !ok {
		return &MaskError{Op: "acquire mask", Err: fmt.Errorf("%w: %d cells of %d bytes", ErrOutOfMemory, a.Size(), mt.Size())}
	}
	al := q.allocator()
	buf, ok := al.Alloc(nbytes)
	if ok && len(buf) < nbytes {
		al.Free(buf)
		ok = false
	}
	if !ok {
		q.log().Warn("mask allocation failed", "bytes", nbytes)
		return &MaskError{Op: "acquire mask", Err: fmt.Errorf("%w: %d bytes", ErrOutOfMemory, nbytes)}
	}

	staged := maskField{
		state: MaskOwned,
		dtype: mt,
		buf:   buf[:nbytes],
		from:  al,
	}
	if err := q.populate(a, &staged); err != nil {
		al.Free(buf)
		q.log().Warn("mask migration failed", "ndim", a.NDim(), "from", a.mask.dtype, "to", mt, "error", err)
		return &MaskError{Op: "acquire mask", Err: fmt.Errorf("%w: %w", ErrConversionFailed, err)}
	}

	q.log().Debug("mask acquired",
		"ndim", a.NDim(),
		"dtype", mt,
		"bytes", nbytes,
		"strides", staged.strides,
		"previous", a.mask.state,
	)
	a.mask = staged
	return nil
}

// populate fills in the staged mask's strides and contents from a.
func (q *Acquirer) populate(a *Array, m *maskField) error {
	switch nd := a.NDim(); nd {
	case 0:
		m.strides = []int{}
		migrateScalar(a.mask, m)
		return nil
	case 1:
		m.strides = []int{m.dtype.Size()}
		return q.migrateVector(a, m)
	default:
		perm := strided.SortedStridePerm(a.strides)
		m.strides = strided.LayoutStrides(a.shape, perm, m.dtype.Size())
		return q.migrateTensor(a, m)
	}
}

func (q *Acquirer) allocator() alloc.Allocator {
	if q.Alloc == nil {
		return alloc.Heap{}
	}
	return q.Alloc
}

func (q *Acquirer) caster() cast.Caster {
	if q.Cast == nil {
		return cast.Converter{}
	}
	return q.Cast
}

func (q *Acquirer) log() logger.Logger {
	if q.Log == nil {
		return logger.Discard()
	}
	return q.Log
}

// maskBytes returns cells*elsize, or false if it does not fit in an int.
func maskBytes(cells, elsize int) (int, bool) {
	c, err := safecast.Conv[uint64](cells)
	if err != nil {
		return 0, false
	}
	e, err := safecast.Conv[uint64](elsize)
	if err != nil {
		return 0, false
	}
	hi, lo := bits.Mul64(c, e)
	if hi != 0 {
		return 0, false
	}
	n, err := safecast.Conv[int](lo)
	if err != nil {
		return 0, false
	}
	return n, true
}

package ndarray

import (
	"fmt"
	"slices"

	"github.com/samcharles93/namask/internal/alloc"
	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/dtype"
)

// MaskState is the ownership state of an array's NA mask.
type MaskState uint8

const (
	MaskNone MaskState = iota
	MaskBorrowed
	MaskOwned
)

func (s MaskState) String() string {
	switch s {
	case MaskNone:
		return "none"
	case MaskBorrowed:
		return "borrowed"
	case MaskOwned:
		return "owned"
	default:
		return fmt.Sprintf("MaskState(%d)", uint8(s))
	}
}

// ParseMaskState is the inverse of MaskState.String.
func ParseMaskState(s string) (MaskState, error) {
	switch s {
	case "none", "":
		return MaskNone, nil
	case "borrowed":
		return MaskBorrowed, nil
	case "owned":
		return MaskOwned, nil
	default:
		return MaskNone, fmt.Errorf("%w: unknown mask state %q", ErrMaskLayout, s)
	}
}

// maskField is everything an array knows about its mask. It is replaced
// as a whole, never field by field.
type maskField struct {
	state   MaskState
	dtype   dtype.Descr
	buf     []byte
	offset  int
	strides []int
	// from is the allocator that produced buf when this array owns it.
	from alloc.Allocator
}

func (m maskField) borrow() maskField {
	return maskField{
		state:   MaskBorrowed,
		dtype:   m.dtype,
		buf:     m.buf,
		offset:  m.offset,
		strides: m.strides,
	}
}

// MaskSpec describes a mask supplied at construction time.
type MaskSpec struct {
	Type    dtype.Descr
	Buf     []byte
	Offset  int
	Strides []int
	// Borrowed marks the buffer as shared with another array.
	Borrowed bool
}

// WithMask attaches an existing mask to a new array.
func WithMask(spec MaskSpec) Option {
	return func(a *Array) error {
		if a.dtype.HasFields() {
			return ErrUnsupportedElementType
		}
		if !dtype.IsMaskType(spec.Type) {
			return fmt.Errorf("%w: mask type %v", ErrMaskLayout, spec.Type)
		}
		if len(spec.Strides) != a.NDim() {
			return fmt.Errorf("%w: %d mask strides for %d dimensions", ErrMaskLayout, len(spec.Strides), a.NDim())
		}
		if !strided.InBounds(len(spec.Buf), spec.Offset, a.shape, spec.Strides, spec.Type.Size()) {
			return fmt.Errorf("%w: mask strides reach outside the mask buffer", ErrMaskLayout)
		}
		state := MaskOwned
		if spec.Borrowed {
			state = MaskBorrowed
		}
		a.mask = maskField{
			state:   state,
			dtype:   spec.Type,
			buf:     spec.Buf,
			offset:  spec.Offset,
			strides: slices.Clone(spec.Strides),
		}
		return nil
	}
}

func (a *Array) MaskState() MaskState { return a.mask.state }

// HasMask reports whether a mask is attached, owned or borrowed.
func (a *Array) HasMask() bool { return a.mask.state != MaskNone }

func (a *Array) OwnsMask() bool { return a.mask.state == MaskOwned }

// MaskType returns the mask element type, or the invalid descriptor when
// there is no mask.
func (a *Array) MaskType() dtype.Descr { return a.mask.dtype }

func (a *Array) MaskStrides() []int { return slices.Clone(a.mask.strides) }

// MaskBuffer exposes the raw mask buffer and the offset of cell zero.
func (a *Array) MaskBuffer() ([]byte, int) { return a.mask.buf, a.mask.offset }

// HasMaskSupport reports whether a carries an NA mask.
func HasMaskSupport(a *Array) bool {
	return a.HasMask()
}

// ContainsMissing reports whether any element of a is NA. Without mask
// support nothing can be missing.
//
// Scanning the mask is not implemented yet, so arrays with a mask also
// report false.
func ContainsMissing(a *Array) bool {
	if !HasMaskSupport(a) {
		return false
	}
	// TODO: walk the mask in stride order and stop at the first unexposed cell.
	return false
}

// MaskAt returns the raw mask cell for idx.
func (a *Array) MaskAt(idx ...int) (byte, error) {
	if a.mask.state == MaskNone {
		return 0, ErrNoMask
	}
	if err := strided.CheckIndex(a.shape, idx); err != nil {
		return 0, err
	}
	return a.mask.buf[a.mask.offset+strided.Offset(idx, a.mask.strides)], nil
}

// Valid reports whether the element at idx is present. Arrays without a
// mask have no missing elements.
func (a *Array) Valid(idx ...int) (bool, error) {
	if a.mask.state == MaskNone {
		return true, strided.CheckIndex(a.shape, idx)
	}
	v, err := a.MaskAt(idx...)
	if err != nil {
		return false, err
	}
	if a.mask.dtype.Kind == dtype.Mask {
		return dtype.MaskExposed(v), nil
	}
	return v != 0, nil
}

// SetValid marks the element at idx as present or missing. The mask must
// be owned; borrowed masks are never written through.
func (a *Array) SetValid(valid bool, idx ...int) error {
	return a.setCell(dtype.ConvertMaskCell(dtype.Bool, a.mask.dtype.Kind, boolCell(valid)), idx)
}

// SetMissingReason marks the element at idx as missing with a payload.
// Only multi-valued masks can carry a payload.
func (a *Array) SetMissingReason(payload byte, idx ...int) error {
	if a.mask.state != MaskNone && a.mask.dtype.Kind != dtype.Mask {
		return fmt.Errorf("%w: %v masks carry no payload", ErrMaskLayout, a.mask.dtype)
	}
	return a.setCell(dtype.MaskCreate(false, payload), idx)
}

func (a *Array) setCell(v byte, idx []int) error {
	switch a.mask.state {
	case MaskNone:
		return ErrNoMask
	case MaskBorrowed:
		return ErrMaskNotOwned
	}
	if err := strided.CheckIndex(a.shape, idx); err != nil {
		return err
	}
	a.mask.buf[a.mask.offset+strided.Offset(idx, a.mask.strides)] = v
	return nil
}

// ReleaseMask detaches the mask. An owned buffer goes back to the
// allocator it came from, so views that borrowed it must not be used
// afterwards.
func (a *Array) ReleaseMask() {
	m := a.mask
	a.mask = maskField{}
	if m.state == MaskOwned && m.from != nil {
		m.from.Free(m.buf)
	}
}

func boolCell(v bool) byte {
	if v {
		return 1
	}
	return 0
}

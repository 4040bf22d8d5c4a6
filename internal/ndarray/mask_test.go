package ndarray

import (
	"errors"
	"slices"
	"testing"

	"github.com/samcharles93/namask/internal/alloc"
	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/dtype"
)

func TestHasMaskSupport(t *testing.T) {
	t.Parallel()

	a := mustNew(t, f32, 3)
	if HasMaskSupport(a) {
		t.Fatal("fresh array reports mask support")
	}
	if err := a.AcquireMask(false, false); err != nil {
		t.Fatalf("AcquireMask: %v", err)
	}
	if !HasMaskSupport(a) {
		t.Fatal("expected mask support after acquisition")
	}
	v, err := a.Transpose()
	if err != nil {
		t.Fatalf("Transpose: %v", err)
	}
	if !HasMaskSupport(v) || v.OwnsMask() {
		t.Fatalf("view should borrow the mask, state %v", v.MaskState())
	}
}

func TestContainsMissingIsUnimplementedScan(t *testing.T) {
	t.Parallel()

	a := mustNew(t, f32, 4)
	if ContainsMissing(a) {
		t.Fatal("array without mask reports missing values")
	}
	if err := a.AcquireMask(true, false); err != nil {
		t.Fatalf("AcquireMask: %v", err)
	}
	if err := a.SetValid(false, 2); err != nil {
		t.Fatalf("SetValid: %v", err)
	}
	// the scan is not implemented; a masked array always reports false
	if ContainsMissing(a) {
		t.Fatal("ContainsMissing started scanning the mask")
	}
}

func TestSetValidRequiresOwnedMask(t *testing.T) {
	t.Parallel()

	a := mustNew(t, f32, 2, 2)
	if err := a.SetValid(false, 0, 0); !errors.Is(err, ErrNoMask) {
		t.Fatalf("expected ErrNoMask, got %v", err)
	}
	if err := a.AcquireMask(true, false); err != nil {
		t.Fatalf("AcquireMask: %v", err)
	}
	v, _ := a.Transpose()
	if err := v.SetValid(false, 1, 0); !errors.Is(err, ErrMaskNotOwned) {
		t.Fatalf("expected ErrMaskNotOwned, got %v", err)
	}
	if err := a.SetValid(false, 0, 1); err != nil {
		t.Fatalf("SetValid: %v", err)
	}
	// the view sees writes made by the owner
	ok, err := v.Valid(1, 0)
	if err != nil || ok {
		t.Fatalf("view Valid(1,0) = %v, %v; want false", ok, err)
	}
	if err := a.SetValid(true, 2, 0); !errors.Is(err, strided.ErrIndexRange) {
		t.Fatalf("expected ErrIndexRange, got %v", err)
	}
}

func TestSetMissingReason(t *testing.T) {
	t.Parallel()

	a := mustNew(t, f32, 3)
	if err := a.AcquireMask(true, true); err != nil {
		t.Fatalf("AcquireMask: %v", err)
	}
	if err := a.SetMissingReason(5, 1); err != nil {
		t.Fatalf("SetMissingReason: %v", err)
	}
	cell, _ := a.MaskAt(1)
	if dtype.MaskExposed(cell) || dtype.MaskPayload(cell) != 5 {
		t.Fatalf("cell %#x", cell)
	}

	b := mustNew(t, f32, 3)
	if err := b.AcquireMask(true, false); err != nil {
		t.Fatalf("AcquireMask: %v", err)
	}
	if err := b.SetMissingReason(5, 1); !errors.Is(err, ErrMaskLayout) {
		t.Fatalf("expected ErrMaskLayout for bool mask, got %v", err)
	}
}

func TestValidWithoutMask(t *testing.T) {
	t.Parallel()

	a := mustNew(t, f32, 2)
	ok, err := a.Valid(1)
	if err != nil || !ok {
		t.Fatalf("Valid = %v, %v", ok, err)
	}
	if _, err := a.MaskAt(1); !errors.Is(err, ErrNoMask) {
		t.Fatalf("expected ErrNoMask, got %v", err)
	}
}

func TestReleaseMaskReturnsBuffer(t *testing.T) {
	t.Parallel()

	budget := alloc.NewLimited(nil, 64)
	q := &Acquirer{Alloc: budget}
	a := mustNew(t, f32, 4, 4)
	if err := q.Acquire(a, true, false); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if budget.Used() != 16 {
		t.Fatalf("Used: %d", budget.Used())
	}
	a.ReleaseMask()
	if a.HasMask() || budget.Used() != 0 {
		t.Fatalf("after release: state %v used %d", a.MaskState(), budget.Used())
	}

	// borrowed masks are never freed through the view
	b := mustNew(t, f32, 4)
	if err := q.Acquire(b, true, false); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	v, _ := b.Transpose()
	v.ReleaseMask()
	if budget.Used() != 4 || !b.OwnsMask() {
		t.Fatalf("releasing a view freed the owner's mask: used %d", budget.Used())
	}
}

func TestAcquireWithMmapAllocator(t *testing.T) {
	t.Parallel()

	q := &Acquirer{Alloc: alloc.Mmap{}}
	a := withRowMajorMask(t, dtype.Of(dtype.Bool), true, []int{3, 3}, 1, 0, 1, 0, 1, 0, 1, 0, 1)
	if err := q.Acquire(a, true, false); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !slices.Equal(maskCells(t, a), []int{1, 0, 1, 0, 1, 0, 1, 0, 1}) {
		t.Fatalf("cells: %v", maskCells(t, a))
	}
	a.ReleaseMask()
}

func TestWithMaskValidation(t *testing.T) {
	t.Parallel()

	boolT := dtype.Of(dtype.Bool)
	tests := []struct {
		name string
		dt   dtype.Descr
		spec MaskSpec
		want error
	}{
		{"wrong mask type", f32, MaskSpec{Type: f32, Buf: make([]byte, 16), Strides: []int{4}}, ErrMaskLayout},
		{"rank mismatch", f32, MaskSpec{Type: boolT, Buf: make([]byte, 4), Strides: []int{1, 1}}, ErrMaskLayout},
		{"buffer too small", f32, MaskSpec{Type: boolT, Buf: make([]byte, 3), Strides: []int{1}}, ErrMaskLayout},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.dt, []int{4}, WithMask(tc.spec))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	rec, _ := dtype.NewStruct(dtype.Field{Name: "a", Type: f32})
	_, err := New(rec, []int{4}, WithMask(MaskSpec{Type: boolT, Buf: make([]byte, 4), Strides: []int{1}}))
	if !errors.Is(err, ErrUnsupportedElementType) {
		t.Fatalf("expected ErrUnsupportedElementType, got %v", err)
	}
}

func TestNewStridedValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewStrided(f32, []int{2, 2}, []int{8, 4}, make([]byte, 15), 0); !errors.Is(err, ErrDataBounds) {
		t.Fatalf("expected ErrDataBounds, got %v", err)
	}
	if _, err := NewStrided(f32, []int{2}, []int{8, 4}, make([]byte, 16), 0); !errors.Is(err, strided.ErrRank) {
		t.Fatalf("expected ErrRank, got %v", err)
	}
	if _, err := New(f32, []int{-1}); !errors.Is(err, strided.ErrNegativeDim) {
		t.Fatalf("expected ErrNegativeDim, got %v", err)
	}
	if _, err := New(dtype.Descr{}, []int{1}); !errors.Is(err, dtype.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestViews(t *testing.T) {
	t.Parallel()

	a := mustNew(t, f32, 2, 3, 4)
	v, err := a.Transpose(2, 0, 1)
	if err != nil {
		t.Fatalf("Transpose: %v", err)
	}
	if !slices.Equal(v.Shape(), []int{4, 2, 3}) || !slices.Equal(v.Strides(), []int{4, 48, 16}) {
		t.Fatalf("view shape %v strides %v", v.Shape(), v.Strides())
	}
	if _, err := a.Transpose(0, 1); !errors.Is(err, strided.ErrAxis) {
		t.Fatalf("expected ErrAxis, got %v", err)
	}
	if _, err := a.Reverse(3); !errors.Is(err, strided.ErrAxis) {
		t.Fatalf("expected ErrAxis, got %v", err)
	}

	r, err := a.Reverse(2)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	_, off := r.Data()
	if off != 12 || r.Strides()[2] != -4 {
		t.Fatalf("reversed offset %d strides %v", off, r.Strides())
	}
}

func TestPlanLayout(t *testing.T) {
	t.Parallel()

	l, err := PlanLayout([]int{3, 4}, []int{4, 12}, false)
	if err != nil {
		t.Fatalf("PlanLayout: %v", err)
	}
	if !slices.Equal(l.Order, []int{0, 1}) || !slices.Equal(l.MaskStrides, []int{1, 3}) || l.MaskBytes != 12 {
		t.Fatalf("layout %+v", l)
	}

	l, err = PlanLayout([]int{5}, []int{-8}, true)
	if err != nil {
		t.Fatalf("PlanLayout: %v", err)
	}
	if l.MaskType.Kind != dtype.Mask || !slices.Equal(l.MaskStrides, []int{1}) {
		t.Fatalf("layout %+v", l)
	}

	if _, err := PlanLayout([]int{3, 4}, []int{4}, false); !errors.Is(err, strided.ErrRank) {
		t.Fatalf("expected ErrRank, got %v", err)
	}

	// the plan matches what acquisition builds
	a, _ := NewStrided(f32, []int{2, 3, 4}, []int{48, 4, 12}, make([]byte, 96), 0)
	l, _ = PlanLayout(a.Shape(), a.Strides(), false)
	if err := AcquireMask(a, true, false); err != nil {
		t.Fatalf("AcquireMask: %v", err)
	}
	if !slices.Equal(l.MaskStrides, a.MaskStrides()) {
		t.Fatalf("plan %v vs acquired %v", l.MaskStrides, a.MaskStrides())
	}
}

func TestMaskStateString(t *testing.T) {
	t.Parallel()

	for _, s := range []MaskState{MaskNone, MaskBorrowed, MaskOwned} {
		got, err := ParseMaskState(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseMaskState(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseMaskState("leased"); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

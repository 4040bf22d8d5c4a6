package ndarray

import "errors"

var (
	// ErrUnsupportedElementType is returned when a structured element type
	// asks for a mask. It is permanent for that array.
	ErrUnsupportedElementType = errors.New("NA masks are not supported for structured element types")
	// ErrOutOfMemory is returned when the mask buffer cannot be allocated.
	ErrOutOfMemory = errors.New("out of memory allocating NA mask")
	// ErrConversionFailed is returned when an existing mask cannot be
	// converted into the new mask layout or type.
	ErrConversionFailed = errors.New("NA mask conversion failed")

	ErrNoMask       = errors.New("array has no NA mask")
	ErrMaskNotOwned = errors.New("array does not own its NA mask")
	ErrDataBounds   = errors.New("array strides reach outside the data buffer")
	ErrMaskLayout   = errors.New("invalid NA mask layout")
)

// MaskError records the operation that failed alongside the cause.
type MaskError struct {
	Op  string
	Err error
}

func (e *MaskError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *MaskError) Unwrap() error {
	return e.Err
}

package dtype

// Multi-valued mask cells keep the exposed flag in bit 0 and a payload
// (the reason an element is missing) in the upper seven bits.

// MaskExposed reports whether a multi-valued mask cell marks its element
// as present.
func MaskExposed(v byte) bool { return v&0x01 != 0 }

// MaskPayload returns the payload bits of a multi-valued mask cell.
func MaskPayload(v byte) byte { return v >> 1 }

// MaskCreate encodes a multi-valued mask cell.
func MaskCreate(exposed bool, payload byte) byte {
	return boolByte(exposed) | payload<<1
}

// IsMaskType reports whether d is usable as an NA mask element type.
func IsMaskType(d Descr) bool {
	return d.Kind == Bool || d.Kind == Mask
}

// ConvertMaskCell reinterprets a single mask cell from one mask type to
// another. Same-type conversion is verbatim; otherwise only the exposed
// state survives.
func ConvertMaskCell(from, to Kind, v byte) byte {
	if from == to {
		return v
	}
	exposed := v != 0
	if from == Mask {
		exposed = MaskExposed(v)
	}
	if to == Mask {
		return MaskCreate(exposed, 0)
	}
	return boolByte(exposed)
}

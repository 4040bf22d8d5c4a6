package ndarray

import (
	"github.com/samcharles93/namask/pkg/cast"
	"github.com/samcharles93/namask/pkg/dtype"
)

// fillValid marks every cell of buf as present.
func fillValid(buf []byte, mt dtype.Descr) {
	v := dtype.ConvertMaskCell(dtype.Bool, mt.Kind, 1)
	for i := range buf {
		buf[i] = v
	}
}

func migrateScalar(old maskField, m *maskField) {
	if old.state == MaskNone {
		fillValid(m.buf, m.dtype)
		return
	}
	m.buf[0] = dtype.ConvertMaskCell(old.dtype.Kind, m.dtype.Kind, old.buf[old.offset])
}

func (q *Acquirer) migrateVector(a *Array, m *maskField) error {
	old := a.mask
	if old.state == MaskNone {
		fillValid(m.buf, m.dtype)
		return nil
	}
	// A dense source of the same type is byte-identical to the new mask.
	if old.strides[0] == old.dtype.Size() && old.dtype.Equal(m.dtype) {
		copy(m.buf, old.buf[old.offset:old.offset+len(m.buf)])
		q.log().Debug("mask copied without conversion", "cells", len(m.buf))
		return nil
	}
	return q.caster().Cast1D(a.shape[0], operand(old), operand(*m))
}

func (q *Acquirer) migrateTensor(a *Array, m *maskField) error {
	old := a.mask
	if old.state == MaskNone {
		fillValid(m.buf, m.dtype)
		return nil
	}
	return q.caster().CastND(a.shape, operand(old), operand(*m))
}

func operand(m maskField) cast.Operand {
	return cast.Operand{
		Buf:     m.buf,
		Offset:  m.offset,
		Strides: m.strides,
		Type:    m.dtype,
	}
}

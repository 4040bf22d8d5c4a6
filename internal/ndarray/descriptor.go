package ndarray

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"fortio.org/safecast"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/namask/internal/alloc"
	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/dtype"
)

var ErrDescriptor = errors.New("invalid array descriptor")

// Descriptor is the serialisable form of an array's layout and mask. Data
// contents are not carried; arrays built from a descriptor are zeroed.
type Descriptor struct {
	Shape []int `json:"shape" yaml:"shape"`
	// Strides are byte strides; empty means C order.
	Strides []int             `json:"strides,omitempty" yaml:"strides,omitempty"`
	DType   string            `json:"dtype" yaml:"dtype"`
	Fields  []FieldDescriptor `json:"fields,omitempty" yaml:"fields,omitempty"`
	Mask    *MaskDescriptor   `json:"mask,omitempty" yaml:"mask,omitempty"`
}

type FieldDescriptor struct {
	Name  string `json:"name" yaml:"name"`
	DType string `json:"dtype" yaml:"dtype"`
}

type MaskDescriptor struct {
	DType string `json:"dtype" yaml:"dtype"`
	// Strides are mask byte strides; empty means C order.
	Strides []int `json:"strides,omitempty" yaml:"strides,omitempty"`
	// Cells holds one raw mask value per element in logical C order.
	Cells []int  `json:"cells" yaml:"cells"`
	State string `json:"state,omitempty" yaml:"state,omitempty"`
}

// elementType resolves the descriptor's dtype, building a struct type
// when fields are listed.
func (d Descriptor) elementType() (dtype.Descr, error) {
	if len(d.Fields) == 0 {
		return dtype.Parse(d.DType)
	}
	if d.DType != "" && d.DType != "struct" {
		return dtype.Descr{}, fmt.Errorf("%w: fields given for dtype %q", ErrDescriptor, d.DType)
	}
	fields := make([]dtype.Field, len(d.Fields))
	for i, f := range d.Fields {
		ft, err := dtype.Parse(f.DType)
		if err != nil {
			return dtype.Descr{}, err
		}
		fields[i] = dtype.Field{Name: f.Name, Type: ft}
	}
	return dtype.NewStruct(fields...)
}

// FromDescriptor builds an array from d.
func FromDescriptor(d Descriptor) (*Array, error) {
	dt, err := d.elementType()
	if err != nil {
		return nil, err
	}
	if err := strided.CheckExtent(d.Shape, dt.Size()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptor, err)
	}
	strides := d.Strides
	if len(strides) == 0 {
		strides = strided.ContiguousStrides(d.Shape, dt.Size())
	}
	if len(strides) != len(d.Shape) {
		return nil, fmt.Errorf("%w: %d strides for %d dimensions", ErrDescriptor, len(strides), len(d.Shape))
	}
	data, offset, err := spanBuffer(d.Shape, strides, dt.Size())
	if err != nil {
		return nil, err
	}

	var opts []Option
	if d.Mask != nil {
		spec, err := d.Mask.spec(d.Shape)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithMask(spec))
	}
	return NewStrided(dt, d.Shape, strides, data, offset, opts...)
}

func (m MaskDescriptor) spec(shape []int) (MaskSpec, error) {
	mt, err := dtype.Parse(m.DType)
	if err != nil {
		return MaskSpec{}, err
	}
	if !dtype.IsMaskType(mt) {
		return MaskSpec{}, fmt.Errorf("%w: mask dtype %v", ErrDescriptor, mt)
	}
	state, err := ParseMaskState(m.State)
	if err != nil {
		return MaskSpec{}, err
	}
	if state == MaskNone {
		state = MaskOwned
	}
	strides := m.Strides
	if len(strides) == 0 {
		strides = strided.ContiguousStrides(shape, mt.Size())
	}
	if len(strides) != len(shape) {
		return MaskSpec{}, fmt.Errorf("%w: %d mask strides for %d dimensions", ErrDescriptor, len(strides), len(shape))
	}
	if len(m.Cells) != strided.Size(shape) {
		return MaskSpec{}, fmt.Errorf("%w: %d mask cells for %d elements", ErrDescriptor, len(m.Cells), strided.Size(shape))
	}

	buf, offset, err := spanBuffer(shape, strides, mt.Size())
	if err != nil {
		return MaskSpec{}, err
	}
	idx := make([]int, len(shape))
	for i, c := range m.Cells {
		v, err := safecast.Conv[uint8](c)
		if err != nil {
			return MaskSpec{}, fmt.Errorf("%w: mask cell %d: %w", ErrDescriptor, i, err)
		}
		buf[offset+strided.Offset(idx, strides)] = v
		strided.NextIndex(idx, shape)
	}
	return MaskSpec{
		Type:     mt,
		Buf:      buf,
		Offset:   offset,
		Strides:  slices.Clone(strides),
		Borrowed: state == MaskBorrowed,
	}, nil
}

// spanBuffer allocates the smallest buffer covering every element and
// returns the offset of element zero in it.
func spanBuffer(shape, strides []int, elsize int) ([]byte, int, error) {
	lo, hi, err := strided.Span(shape, strides, elsize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDescriptor, err)
	}
	buf, ok := alloc.Heap{}.Alloc(hi - lo)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %d byte buffer", ErrOutOfMemory, hi-lo)
	}
	return buf, -lo, nil
}

// Describe captures a's layout and mask.
func (a *Array) Describe() Descriptor {
	d := Descriptor{
		Shape:   a.Shape(),
		Strides: a.Strides(),
		DType:   a.dtype.Kind.String(),
	}
	for _, f := range a.dtype.Fields {
		d.Fields = append(d.Fields, FieldDescriptor{Name: f.Name, DType: f.Type.String()})
	}
	if a.mask.state == MaskNone {
		return d
	}
	m := &MaskDescriptor{
		DType:   a.mask.dtype.String(),
		Strides: a.MaskStrides(),
		Cells:   make([]int, 0, a.Size()),
		State:   a.mask.state.String(),
	}
	if a.Size() > 0 {
		idx := make([]int, a.NDim())
		for {
			m.Cells = append(m.Cells, int(a.mask.buf[a.mask.offset+strided.Offset(idx, a.mask.strides)]))
			if !strided.NextIndex(idx, a.shape) {
				break
			}
		}
	}
	d.Mask = m
	return d
}

// DecodeDescriptor parses data as "json" or "yaml".
func DecodeDescriptor(data []byte, format string) (Descriptor, error) {
	var d Descriptor
	var err error
	switch strings.ToLower(format) {
	case "json":
		err = json.Unmarshal(data, &d)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &d)
	default:
		return d, fmt.Errorf("%w: unknown format %q", ErrDescriptor, format)
	}
	if err != nil {
		return d, fmt.Errorf("%w: %w", ErrDescriptor, err)
	}
	return d, nil
}

// LoadDescriptor reads a descriptor file, choosing the format from its
// extension.
func LoadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	return DecodeDescriptor(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode renders d as indented "json" or "yaml".
func (d Descriptor) Encode(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(d, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(d)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrDescriptor, format)
	}
}

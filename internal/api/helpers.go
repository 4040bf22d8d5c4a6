package api

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/samcharles93/namask/internal/ndarray"
)

// decodeJSON decodes a request body, rejecting unknown fields. An empty
// body decodes to the zero value.
func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil && err != io.EOF {
		return out, newInvalidRequest(err.Error())
	}
	return out, nil
}

func arrayResponse(rec *arrayRecord) ArrayResponse {
	return ArrayResponse{
		ID:              rec.ID,
		Object:          "array",
		CreatedAt:       rec.CreatedAt.Unix(),
		Parent:          rec.Parent,
		HasMaskSupport:  ndarray.HasMaskSupport(rec.Array),
		ContainsMissing: ndarray.ContainsMissing(rec.Array),
		Array:           rec.Array.Describe(),
	}
}

func maskStatus(rec *arrayRecord) MaskStatusResponse {
	a := rec.Array
	resp := MaskStatusResponse{
		ID:              rec.ID,
		Object:          "mask",
		State:           a.MaskState().String(),
		HasMaskSupport:  ndarray.HasMaskSupport(a),
		ContainsMissing: ndarray.ContainsMissing(a),
	}
	if a.HasMask() {
		resp.DType = a.MaskType().String()
		resp.Strides = a.MaskStrides()
	}
	return resp
}

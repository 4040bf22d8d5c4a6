package api

import "github.com/samcharles93/namask/internal/ndarray"

type ArrayResponse struct {
	ID              string             `json:"id"`
	Object          string             `json:"object"`
	CreatedAt       int64              `json:"created_at"`
	Parent          string             `json:"parent,omitempty"`
	HasMaskSupport  bool               `json:"has_mask_support"`
	ContainsMissing bool               `json:"contains_missing"`
	Array           ndarray.Descriptor `json:"array"`
}

type AcquireMaskRequest struct {
	// Own defaults to true.
	Own         *bool `json:"own,omitempty"`
	MultiValued bool  `json:"multi_valued,omitempty"`
}

type MaskStatusResponse struct {
	ID              string `json:"id"`
	Object          string `json:"object"`
	State           string `json:"state"`
	DType           string `json:"dtype,omitempty"`
	Strides         []int  `json:"strides,omitempty"`
	HasMaskSupport  bool   `json:"has_mask_support"`
	ContainsMissing bool   `json:"contains_missing"`
}

type TransposeRequest struct {
	Axes []int `json:"axes,omitempty"`
}

type LayoutRequest struct {
	Shape []int `json:"shape"`
	// Strides default to C order for DType.
	Strides     []int  `json:"strides,omitempty"`
	DType       string `json:"dtype,omitempty"`
	MultiValued bool   `json:"multi_valued,omitempty"`
}

type LayoutResponse struct {
	Object      string `json:"object"`
	Order       []int  `json:"order"`
	MaskDType   string `json:"mask_dtype"`
	MaskStrides []int  `json:"mask_strides"`
	MaskBytes   int    `json:"mask_bytes"`
}

type DeleteArrayResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

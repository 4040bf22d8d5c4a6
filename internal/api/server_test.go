package api

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/namask/internal/alloc"
	"github.com/samcharles93/namask/internal/ndarray"
)

func newTestEcho(acq *ndarray.Acquirer) *echo.Echo {
	server := NewServer(NewArrayStore(), acq, nil)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func createArray(t *testing.T, e *echo.Echo, body string) ArrayResponse {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/v1/arrays", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status: got %d body=%s", rec.Code, rec.Body.String())
	}
	return decodeBody[ArrayResponse](t, rec)
}

func TestAcquireMaskFollowsDataOrder(t *testing.T) {
	t.Parallel()

	e := newTestEcho(nil)
	created := createArray(t, e, `{"shape":[3,4],"strides":[4,12],"dtype":"float32"}`)
	if created.ID == "" || created.Object != "array" {
		t.Fatalf("unexpected create response: %+v", created)
	}
	if created.HasMaskSupport || created.Array.Mask != nil {
		t.Fatalf("new array should have no mask: %+v", created)
	}

	rec := doJSON(t, e, http.MethodPost, "/v1/arrays/"+created.ID+"/mask", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("acquire status: got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody[ArrayResponse](t, rec)
	if !got.HasMaskSupport || got.ContainsMissing {
		t.Fatalf("support flags: %+v", got)
	}
	m := got.Array.Mask
	if m == nil || m.State != "owned" || m.DType != "bool" {
		t.Fatalf("mask: %+v", m)
	}
	if !slices.Equal(m.Strides, []int{1, 3}) {
		t.Fatalf("mask strides: got %v want [1 3]", m.Strides)
	}
	for i, c := range m.Cells {
		if c != 1 {
			t.Fatalf("cell %d: got %d want 1", i, c)
		}
	}

	status := doJSON(t, e, http.MethodGet, "/v1/arrays/"+created.ID+"/mask", "")
	st := decodeBody[MaskStatusResponse](t, status)
	if st.State != "owned" || st.DType != "bool" || !slices.Equal(st.Strides, []int{1, 3}) {
		t.Fatalf("mask status: %+v", st)
	}
}

func TestAcquireMaskKeepsBorrowedWhenNotOwning(t *testing.T) {
	t.Parallel()

	e := newTestEcho(nil)
	created := createArray(t, e, `{"shape":[2],"dtype":"int8","mask":{"dtype":"bool","cells":[1,0],"state":"borrowed"}}`)

	rec := doJSON(t, e, http.MethodPost, "/v1/arrays/"+created.ID+"/mask", `{"own":false}`)
	got := decodeBody[ArrayResponse](t, rec)
	if got.Array.Mask.State != "borrowed" {
		t.Fatalf("state: got %q want borrowed", got.Array.Mask.State)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/arrays/"+created.ID+"/mask", `{"own":true,"multi_valued":true}`)
	got = decodeBody[ArrayResponse](t, rec)
	if got.Array.Mask.State != "owned" || got.Array.Mask.DType != "mask" {
		t.Fatalf("mask after owning: %+v", got.Array.Mask)
	}
	if !slices.Equal(got.Array.Mask.Cells, []int{1, 0}) {
		t.Fatalf("cells: got %v want [1 0]", got.Array.Mask.Cells)
	}
}

func TestAcquireMaskErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		acq    *ndarray.Acquirer
		array  string
		status int
		code   string
	}{
		{
			name:   "structured element type",
			array:  `{"shape":[2],"dtype":"struct","fields":[{"name":"x","dtype":"f32"},{"name":"ok","dtype":"bool"}]}`,
			status: http.StatusUnprocessableEntity,
			code:   "unsupported_element_type",
		},
		{
			name:   "allocation budget exceeded",
			acq:    &ndarray.Acquirer{Alloc: alloc.NewLimited(alloc.Heap{}, 4)},
			array:  `{"shape":[2,3],"dtype":"uint8"}`,
			status: http.StatusInsufficientStorage,
			code:   "out_of_memory",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEcho(tc.acq)
			created := createArray(t, e, tc.array)
			rec := doJSON(t, e, http.MethodPost, "/v1/arrays/"+created.ID+"/mask", `{}`)
			if rec.Code != tc.status {
				t.Fatalf("status: got %d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			body := decodeBody[map[string]ErrorBody](t, rec)
			if body["error"].Code != tc.code {
				t.Fatalf("code: got %q want %q", body["error"].Code, tc.code)
			}

			get := decodeBody[ArrayResponse](t, doJSON(t, e, http.MethodGet, "/v1/arrays/"+created.ID, ""))
			if get.Array.Mask != nil {
				t.Fatalf("failed acquire left a mask: %+v", get.Array.Mask)
			}
		})
	}
}

func TestTransposeBorrowsAndBlocksDelete(t *testing.T) {
	t.Parallel()

	e := newTestEcho(nil)
	parent := createArray(t, e, `{"shape":[2,3],"dtype":"bool"}`)
	doJSON(t, e, http.MethodPost, "/v1/arrays/"+parent.ID+"/mask", `{}`)

	rec := doJSON(t, e, http.MethodPost, "/v1/arrays/"+parent.ID+"/transpose", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("transpose status: got %d body=%s", rec.Code, rec.Body.String())
	}
	view := decodeBody[ArrayResponse](t, rec)
	if view.Parent != parent.ID {
		t.Fatalf("parent: got %q want %q", view.Parent, parent.ID)
	}
	if !slices.Equal(view.Array.Shape, []int{3, 2}) || view.Array.Mask.State != "borrowed" {
		t.Fatalf("view: %+v", view.Array)
	}
	if !slices.Equal(view.Array.Mask.Strides, []int{1, 3}) {
		t.Fatalf("view mask strides: got %v want [1 3]", view.Array.Mask.Strides)
	}

	if rec := doJSON(t, e, http.MethodDelete, "/v1/arrays/"+parent.ID, ""); rec.Code != http.StatusConflict {
		t.Fatalf("delete parent with view: got %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodDelete, "/v1/arrays/"+view.ID, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete view: got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodDelete, "/v1/arrays/"+parent.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete parent: got %d body=%s", rec.Code, rec.Body.String())
	}
	if del := decodeBody[DeleteArrayResponse](t, rec); !del.Deleted {
		t.Fatalf("delete response: %+v", del)
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/arrays/"+parent.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", rec.Code)
	}
}

func TestPlanLayout(t *testing.T) {
	t.Parallel()

	e := newTestEcho(nil)
	tests := []struct {
		name    string
		body    string
		order   []int
		strides []int
		dtype   string
		bytes   int
	}{
		{"column major", `{"shape":[3,4],"strides":[4,12]}`, []int{0, 1}, []int{1, 3}, "bool", 12},
		{"default C order", `{"shape":[2,3],"dtype":"f32","multi_valued":true}`, []int{1, 0}, []int{3, 1}, "mask", 6},
		{"scalar", `{"shape":[]}`, []int{}, []int{}, "bool", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/layout", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
			}
			got := decodeBody[LayoutResponse](t, rec)
			if !slices.Equal(got.Order, tc.order) || !slices.Equal(got.MaskStrides, tc.strides) {
				t.Fatalf("layout: got order %v strides %v", got.Order, got.MaskStrides)
			}
			if got.MaskDType != tc.dtype || got.MaskBytes != tc.bytes {
				t.Fatalf("layout: got %s %d bytes", got.MaskDType, got.MaskBytes)
			}
		})
	}
}

func TestBadRequests(t *testing.T) {
	t.Parallel()

	e := newTestEcho(nil)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown field", http.MethodPost, "/v1/arrays", `{"shape":[2],"dtype":"bool","nope":1}`, http.StatusBadRequest},
		{"unknown dtype", http.MethodPost, "/v1/arrays", `{"shape":[2],"dtype":"complex64"}`, http.StatusBadRequest},
		{"negative dim", http.MethodPost, "/v1/arrays", `{"shape":[-1],"dtype":"bool"}`, http.StatusBadRequest},
		{"element count overflow", http.MethodPost, "/v1/arrays", `{"shape":[4294967296,4294967296],"dtype":"uint8"}`, http.StatusBadRequest},
		{"data span too large", http.MethodPost, "/v1/arrays", `{"shape":[2],"strides":[2305843009213693952],"dtype":"uint8"}`, http.StatusInsufficientStorage},
		{"layout byte count overflow", http.MethodPost, "/v1/layout", `{"shape":[2305843009213693952],"dtype":"f64"}`, http.StatusBadRequest},
		{"missing array", http.MethodGet, "/v1/arrays/arr_missing", "", http.StatusNotFound},
		{"missing mask target", http.MethodPost, "/v1/arrays/arr_missing/mask", `{}`, http.StatusNotFound},
		{"layout without shape", http.MethodPost, "/v1/layout", `{}`, http.StatusBadRequest},
		{"layout stride rank", http.MethodPost, "/v1/layout", `{"shape":[2,2],"strides":[1]}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status: got %d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

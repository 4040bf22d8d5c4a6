//go:build !unix

package alloc

// Mmap falls back to the Go heap where anonymous mappings are unavailable.
type Mmap struct{}

func (Mmap) Alloc(n int) ([]byte, bool) { return Heap{}.Alloc(n) }

func (Mmap) Free([]byte) {}

// Package alloc provides the raw byte allocators mask buffers are drawn
// from.
package alloc

import (
	"fmt"
	"strings"
	"sync"
)

// Allocator hands out raw byte buffers. Alloc returns false when the
// request cannot be satisfied; callers map that to an out-of-memory error.
// Free must only be given buffers obtained from the same allocator.
type Allocator interface {
	Alloc(n int) ([]byte, bool)
	Free(buf []byte)
}

// Heap allocates from the Go heap. Free is a no-op.
type Heap struct{}

func (Heap) Alloc(n int) (buf []byte, ok bool) {
	if n < 0 {
		return nil, false
	}
	defer func() {
		// makeslice panics on lengths the runtime cannot represent
		if recover() != nil {
			buf, ok = nil, false
		}
	}()
	return make([]byte, n), true
}

func (Heap) Free([]byte) {}

// Limited enforces a byte budget on top of another allocator.
type Limited struct {
	base Allocator
	max  int

	mu   sync.Mutex
	used int
}

// NewLimited wraps base so that at most max bytes are outstanding.
func NewLimited(base Allocator, max int) *Limited {
	if base == nil {
		base = Heap{}
	}
	return &Limited{base: base, max: max}
}

func (l *Limited) Alloc(n int) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 0 || n > l.max-l.used {
		return nil, false
	}
	buf, ok := l.base.Alloc(n)
	if !ok {
		return nil, false
	}
	l.used += n
	return buf, true
}

func (l *Limited) Free(buf []byte) {
	l.mu.Lock()
	l.used -= len(buf)
	l.mu.Unlock()
	l.base.Free(buf)
}

// Used returns the number of outstanding bytes.
func (l *Limited) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// ByName resolves an allocator from its configuration name.
func ByName(name string) (Allocator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "heap":
		return Heap{}, nil
	case "mmap":
		return Mmap{}, nil
	default:
		return nil, fmt.Errorf("unknown allocator %q (want heap or mmap)", name)
	}
}

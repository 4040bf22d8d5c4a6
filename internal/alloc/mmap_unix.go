//go:build unix

package alloc

import "golang.org/x/sys/unix"

// Mmap backs each buffer with its own anonymous private mapping. Buffers
// must be returned with Free; the garbage collector does not unmap them.
type Mmap struct{}

func (Mmap) Alloc(n int) ([]byte, bool) {
	if n < 0 {
		return nil, false
	}
	if n == 0 {
		return []byte{}, true
	}
	buf, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false
	}
	return buf, true
}

func (Mmap) Free(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	_ = unix.Munmap(buf[:cap(buf)])
}

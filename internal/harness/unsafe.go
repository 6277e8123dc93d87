package harness

import "unsafe"

// uintptrOf returns the address of a byte slice's backing array. Used
// only to turn an mmap'd region into a page.Addr for test harnesses;
// production code never takes addresses of Go slices this way.
func uintptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

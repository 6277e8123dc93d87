// Package memunit defines the typed memory-unit scalars used throughout
// the kernel core (spec.md §3: PageCount / ByteCount / KiByteCount).
// Conversions between units always round up, preserving the invariant
// bytes(u) == scale(u) * raw(u) for any unit u.
package memunit

// PageSize is the fixed page granularity the whole core assumes
// (spec.md §1, "4 KiB leaves").
const PageSize = 4096

// PageShift is the base-2 exponent of PageSize.
const PageShift = 12

// Unit is satisfied by every memory-unit scalar type below. Scale
// reports the number of bytes one unit of this type represents.
type Unit interface {
	Raw() uint64
	Scale() uint64
}

// Bytes returns the byte count represented by u, for any Unit.
func Bytes(u Unit) uint64 {
	return u.Scale() * u.Raw()
}

func convert(bytes, destScale uint64) uint64 {
	return (bytes + destScale - 1) / destScale
}

// ByteCount is a memory size measured in individual bytes.
type ByteCount struct{ raw uint64 }

// NewByteCount constructs a ByteCount from a raw byte count.
func NewByteCount(raw uint64) ByteCount { return ByteCount{raw} }

// Raw returns the number of bytes.
func (b ByteCount) Raw() uint64 { return b.raw }

// Scale reports the byte-scale of ByteCount, which is always 1.
func (ByteCount) Scale() uint64 { return 1 }

// ToPages rounds this byte count up to a whole number of pages.
func (b ByteCount) ToPages() PageCount {
	return PageCount{convert(Bytes(b), PageSize)}
}

// ToKiBytes rounds this byte count up to a whole number of kibibytes.
func (b ByteCount) ToKiBytes() KiByteCount {
	return KiByteCount{convert(Bytes(b), 1024)}
}

// KiByteCount is a memory size measured in kibibytes (1024 bytes).
type KiByteCount struct{ raw uint64 }

// NewKiByteCount constructs a KiByteCount from a raw kibibyte count.
func NewKiByteCount(raw uint64) KiByteCount { return KiByteCount{raw} }

// Raw returns the number of kibibytes.
func (k KiByteCount) Raw() uint64 { return k.raw }

// Scale reports the byte-scale of KiByteCount, which is always 1024.
func (KiByteCount) Scale() uint64 { return 1024 }

// ToPages rounds this kibibyte count up to a whole number of pages.
func (k KiByteCount) ToPages() PageCount {
	return PageCount{convert(Bytes(k), PageSize)}
}

// PageCount is a memory size measured in 4 KiB pages.
type PageCount struct{ raw uint64 }

// NewPageCount constructs a PageCount from a raw page count.
func NewPageCount(raw uint64) PageCount { return PageCount{raw} }

// Raw returns the number of pages.
func (p PageCount) Raw() uint64 { return p.raw }

// Scale reports the byte-scale of PageCount, which is always PageSize.
func (PageCount) Scale() uint64 { return PageSize }

// ToBytes reports the exact byte size of this page count.
func (p PageCount) ToBytes() ByteCount {
	return ByteCount{Bytes(p)}
}

// RoundupPages rounds n up to the next multiple of d, e.g. for page
// alignment. The allocators and the VM manager do their own page
// arithmetic and do not call it.
func RoundupPages[T ~uint64 | ~int | ~uintptr](n, d T) T {
	return ((n + d - 1) / d) * d
}

// RounddownPages rounds n down to the previous multiple of d.
func RounddownPages[T ~uint64 | ~int | ~uintptr](n, d T) T {
	return (n / d) * d
}

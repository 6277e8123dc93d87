package vm

import (
	"github.com/AshTS/qor/internal/bitmap"
	"github.com/AshTS/qor/internal/page"
)

// BitmapSource adapts a bitmap.Allocator to the single-page PageSource
// shape Manager needs for its own table nodes.
type BitmapSource struct {
	Alloc *bitmap.Allocator
}

// AllocPage claims a single page for a new table node.
func (s BitmapSource) AllocPage() (page.Addr, error) {
	return s.Alloc.AllocatePages(1)
}

// FreePage returns a table node's page to the underlying allocator.
func (s BitmapSource) FreePage(addr page.Addr) error {
	return s.Alloc.FreePages(addr, 1)
}

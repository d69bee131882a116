package pm

// Word is the unit of storage of the simulated machine. Every RAM cell
// and every page-table entry holds one Word.
type Word int32

// Config fixes the geometry of the simulated machine. All sizes are
// derived from the three bit widths, mirroring the constant sets the
// exercises were graded against.
type Config struct {
	OffsetWidth          uint64 // bits of offset within a page
	PhysicalAddressWidth uint64 // bits of a physical address
	VirtualAddressWidth  uint64 // bits of a virtual address
}

// Geometry presets used by the exercise harness. Test is the small
// configuration the simple test runs against.
var (
	Test                     = Config{OffsetWidth: 1, PhysicalAddressWidth: 4, VirtualAddressWidth: 5}
	Normal                   = Config{OffsetWidth: 4, PhysicalAddressWidth: 10, VirtualAddressWidth: 20}
	OffsetDifferentFromIndex = Config{OffsetWidth: 2, PhysicalAddressWidth: 5, VirtualAddressWidth: 7}
	SingleTable              = Config{OffsetWidth: 5, PhysicalAddressWidth: 6, VirtualAddressWidth: 10}
	UnreachableFrames        = Config{OffsetWidth: 3, PhysicalAddressWidth: 9, VirtualAddressWidth: 6}
	NoEviction               = Config{OffsetWidth: 5, PhysicalAddressWidth: 5, VirtualAddressWidth: 5}
)

// PageSize is the page/frame size in words. In this design it is also
// the number of entries in a table.
func (c Config) PageSize() uint64 { return 1 << c.OffsetWidth }

// RAMSize is the physical memory size in words.
func (c Config) RAMSize() uint64 { return 1 << c.PhysicalAddressWidth }

// VirtualMemorySize is the virtual memory size in words.
func (c Config) VirtualMemorySize() uint64 { return 1 << c.VirtualAddressWidth }

// NumFrames is the number of frames in the RAM.
func (c Config) NumFrames() uint64 { return c.RAMSize() / c.PageSize() }

// NumPages is the number of pages in the virtual memory.
func (c Config) NumPages() uint64 { return c.VirtualMemorySize() / c.PageSize() }

// TablesDepth is the number of table levels between the root table and
// a data page.
func (c Config) TablesDepth() int {
	return int((c.VirtualAddressWidth - c.OffsetWidth + c.OffsetWidth - 1) / c.OffsetWidth)
}

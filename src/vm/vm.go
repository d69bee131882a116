package vm

import (
	"errors"

	"github.com/yair-shtern/OS/src/pm"
	"github.com/yair-shtern/OS/src/utils"
)

// ErrOutOfRange is returned when a virtual address cannot be mapped
// because it lies outside the virtual address space.
var ErrOutOfRange = errors.New("vm: virtual address out of range")

// Manager translates virtual addresses into physical addresses on top
// of a simulated physical memory. Page tables form a tree rooted at
// frame 0; a table entry of 0 means "not present".
type Manager struct {
	mem      *pm.Memory
	pageSize uint64
	depth    int
}

func New(mem *pm.Memory) *Manager {
	return &Manager{
		mem:      mem,
		pageSize: mem.Config().PageSize(),
		depth:    mem.Config().TablesDepth(),
	}
}

// Initialize clears the root table.
func (vm *Manager) Initialize() {
	vm.clearFrame(0)
}

// Read returns the word stored at the given virtual address.
func (vm *Manager) Read(virtualAddress uint64) (pm.Word, error) {
	if virtualAddress >= vm.mem.Config().VirtualMemorySize() {
		return 0, ErrOutOfRange
	}
	return vm.mem.Read(vm.physicalAddress(virtualAddress)), nil
}

// Write stores a word at the given virtual address.
func (vm *Manager) Write(virtualAddress uint64, value pm.Word) error {
	if virtualAddress >= vm.mem.Config().VirtualMemorySize() {
		return ErrOutOfRange
	}
	vm.mem.Write(vm.physicalAddress(virtualAddress), value)
	return nil
}

// physicalAddress walks the table tree from the root, consuming
// OFFSET_WIDTH bits of the virtual address per level and provisioning
// missing frames along the way. If any level had to be provisioned,
// the data page is restored from the swap file once the walk is done.
func (vm *Manager) physicalAddress(virtualAddress uint64) uint64 {
	var currFrame pm.Word
	useNewFrame := false
	for i := 0; i < vm.depth; i++ {
		shift := vm.mem.Config().OffsetWidth * uint64(vm.depth-i)
		slot := (virtualAddress >> shift) & (vm.pageSize - 1)
		nextFrame := vm.mem.Read(uint64(currFrame)*vm.pageSize + slot)
		if nextFrame == 0 {
			useNewFrame = true
			nextFrame = vm.findFrame(virtualAddress, currFrame)
			if i < vm.depth-1 {
				// a fresh inner table must start empty; a data
				// page gets its contents from the swap restore
				vm.clearFrame(nextFrame)
			}
			vm.mem.Write(uint64(currFrame)*vm.pageSize+slot, nextFrame)
		}
		currFrame = nextFrame
	}
	if useNewFrame {
		vm.mem.Restore(uint64(currFrame), virtualAddress>>vm.mem.Config().OffsetWidth)
	}
	utils.Debug(utils.DWalk, "va %d -> frame %d", virtualAddress, currFrame)
	return uint64(currFrame)*vm.pageSize + (virtualAddress & (vm.pageSize - 1))
}

func (vm *Manager) clearFrame(frame pm.Word) {
	for i := uint64(0); i < vm.pageSize; i++ {
		vm.mem.Write(uint64(frame)*vm.pageSize+i, 0)
	}
}

package vm

import (
	"github.com/yair-shtern/OS/src/pm"
	"github.com/yair-shtern/OS/src/utils"
)

// victim is the data page chosen for eviction: the page whose index
// has the greatest cyclic distance to the page being swapped in.
type victim struct {
	frame      pm.Word
	parentAddr uint64
	page       uint64
	dist       uint64
}

// findFrame picks the frame that will hold the page being brought in,
// in priority order: an empty inner table, the next never-used frame,
// or eviction of the most cyclically distant data page. The in-flight
// path frame is never chosen.
func (vm *Manager) findFrame(virtualAddress uint64, untouchable pm.Word) pm.Word {
	if frame, parentAddr, ok := vm.findEmptyTable(0, untouchable, 0); ok {
		// detach the table from its old parent
		vm.mem.Write(parentAddr, 0)
		utils.Debug(utils.DFrame, "reusing empty table frame %d", frame)
		return frame
	}

	var maxFrame pm.Word
	vm.maxUsedFrame(0, 0, &maxFrame)
	if uint64(maxFrame)+1 < vm.mem.Config().NumFrames() {
		utils.Debug(utils.DFrame, "using fresh frame %d", maxFrame+1)
		return maxFrame + 1
	}

	pageIn := virtualAddress >> vm.mem.Config().OffsetWidth
	var v victim
	vm.findVictim(0, pageIn, 0, 0, &v)
	vm.mem.Evict(uint64(v.frame), v.page)
	vm.mem.Write(v.parentAddr, 0)
	utils.Debug(utils.DFrame, "evicted page %d from frame %d for page %d", v.page, v.frame, pageIn)
	return v.frame
}

// findEmptyTable returns the first inner table in DFS order whose
// entries are all zero, together with the physical address of the
// parent entry referencing it. The root and the in-flight path frame
// are never candidates.
func (vm *Manager) findEmptyTable(frame, untouchable pm.Word, depth int) (pm.Word, uint64, bool) {
	if depth+1 >= vm.depth {
		// children of this table are data pages, not tables
		return 0, 0, false
	}
	for i := uint64(0); i < vm.pageSize; i++ {
		entryAddr := uint64(frame)*vm.pageSize + i
		child := vm.mem.Read(entryAddr)
		if child == 0 {
			continue
		}
		if child != untouchable && vm.tableEmpty(child) {
			return child, entryAddr, true
		}
		if f, parentAddr, ok := vm.findEmptyTable(child, untouchable, depth+1); ok {
			return f, parentAddr, ok
		}
	}
	return 0, 0, false
}

func (vm *Manager) tableEmpty(frame pm.Word) bool {
	for i := uint64(0); i < vm.pageSize; i++ {
		if vm.mem.Read(uint64(frame)*vm.pageSize+i) != 0 {
			return false
		}
	}
	return true
}

// maxUsedFrame records into max the highest frame index reachable from
// the root. Frames above it have never been handed out.
func (vm *Manager) maxUsedFrame(frame pm.Word, depth int, max *pm.Word) {
	if frame > *max {
		*max = frame
	}
	if depth == vm.depth {
		// data page: its words are not table entries
		return
	}
	for i := uint64(0); i < vm.pageSize; i++ {
		child := vm.mem.Read(uint64(frame)*vm.pageSize + i)
		if child != 0 {
			vm.maxUsedFrame(child, depth+1, max)
		}
	}
}

// findVictim walks every resident data page, reconstructing each page
// index from the slot indices along the walk, and keeps the page with
// the greatest cyclic distance to pageIn. Ties keep the first page
// found, so DFS order (lowest slot first) decides.
func (vm *Manager) findVictim(frame pm.Word, pageIn, pathPage uint64, depth int, v *victim) {
	for i := uint64(0); i < vm.pageSize; i++ {
		child := vm.mem.Read(uint64(frame)*vm.pageSize + i)
		if child == 0 {
			continue
		}
		page := (pathPage << vm.mem.Config().OffsetWidth) + i
		if depth+1 == vm.depth {
			if d := vm.cyclicDistance(pageIn, page); d > v.dist {
				v.dist = d
				v.frame = child
				v.parentAddr = uint64(frame)*vm.pageSize + i
				v.page = page
			}
			continue
		}
		vm.findVictim(child, pageIn, page, depth+1, v)
	}
}

func (vm *Manager) cyclicDistance(p, q uint64) uint64 {
	var diff uint64
	if p < q {
		diff = q - p
	} else {
		diff = p - q
	}
	if wrapped := vm.mem.Config().NumPages() - diff; wrapped < diff {
		return wrapped
	}
	return diff
}

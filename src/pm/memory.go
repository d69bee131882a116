package pm

import (
	"fmt"

	"github.com/yair-shtern/OS/src/utils"
)

// Memory simulates the physical memory of the machine: a RAM of
// NumFrames frames plus a swap file. The swap file is an associative
// store from page index to page contents; a page is either in some
// frame or in the swap file, never both.
type Memory struct {
	cfg   Config
	ram   [][]Word
	swap  map[uint64][]Word
	trace *Trace
}

// Trace records every memory operation, one formatted line per call.
// Attach one to a Memory to observe the exact eviction/restore pattern
// a translation produced.
type Trace struct {
	Ops []string
}

func New(cfg Config) *Memory {
	ram := make([][]Word, cfg.NumFrames())
	for i := range ram {
		ram[i] = make([]Word, cfg.PageSize())
	}
	return &Memory{
		cfg:  cfg,
		ram:  ram,
		swap: make(map[uint64][]Word),
	}
}

func (m *Memory) Config() Config { return m.cfg }

// AttachTrace starts recording operations into t. Pass nil to stop.
func (m *Memory) AttachTrace(t *Trace) { m.trace = t }

func (m *Memory) record(format string, a ...interface{}) {
	if m.trace != nil {
		m.trace.Ops = append(m.trace.Ops, fmt.Sprintf(format, a...))
	}
}

// Read returns the word at the given physical address.
func (m *Memory) Read(physicalAddress uint64) Word {
	if physicalAddress >= m.cfg.RAMSize() {
		panic(fmt.Sprintf("pm: read of physical address %d outside RAM", physicalAddress))
	}
	v := m.ram[physicalAddress/m.cfg.PageSize()][physicalAddress%m.cfg.PageSize()]
	m.record("read(%d) = %d", physicalAddress, v)
	return v
}

// Write stores a word at the given physical address.
func (m *Memory) Write(physicalAddress uint64, value Word) {
	if physicalAddress >= m.cfg.RAMSize() {
		panic(fmt.Sprintf("pm: write of physical address %d outside RAM", physicalAddress))
	}
	m.record("write(%d, %d)", physicalAddress, value)
	m.ram[physicalAddress/m.cfg.PageSize()][physicalAddress%m.cfg.PageSize()] = value
}

// Evict copies the frame's contents into the swap file under the given
// page index. The page must not already be in the swap file.
func (m *Memory) Evict(frameIndex, evictedPageIndex uint64) {
	m.record("evict(%d, %d)", frameIndex, evictedPageIndex)
	utils.Debug(utils.DEvict, "frame %d -> swap page %d", frameIndex, evictedPageIndex)
	if frameIndex >= m.cfg.NumFrames() {
		panic(fmt.Sprintf("pm: evict of frame %d outside RAM", frameIndex))
	}
	if evictedPageIndex >= m.cfg.NumPages() {
		panic(fmt.Sprintf("pm: evict of page %d outside virtual memory", evictedPageIndex))
	}
	if _, ok := m.swap[evictedPageIndex]; ok {
		panic(fmt.Sprintf("pm: page %d evicted twice", evictedPageIndex))
	}
	page := make([]Word, m.cfg.PageSize())
	copy(page, m.ram[frameIndex])
	m.swap[evictedPageIndex] = page
}

// Restore copies the swapped contents of the given page into the frame
// and drops it from the swap file. Restoring a page that was never
// evicted is a no-op: this is the first reference to the page and the
// frame's contents do not matter.
func (m *Memory) Restore(frameIndex, restoredPageIndex uint64) {
	m.record("restore(%d, %d)", frameIndex, restoredPageIndex)
	utils.Debug(utils.DRestore, "swap page %d -> frame %d", restoredPageIndex, frameIndex)
	if frameIndex >= m.cfg.NumFrames() {
		panic(fmt.Sprintf("pm: restore into frame %d outside RAM", frameIndex))
	}
	page, ok := m.swap[restoredPageIndex]
	if !ok {
		return
	}
	m.ram[frameIndex] = page
	delete(m.swap, restoredPageIndex)
}

// PageInSwap reports whether the given page currently lives in the
// swap file.
func (m *Memory) PageInSwap(pageIndex uint64) bool {
	_, ok := m.swap[pageIndex]
	return ok
}

package vm

import (
	"testing"

	"github.com/yair-shtern/OS/src/pm"
)

func TestOutOfRange(t *testing.T) {
	mgr := New(pm.New(pm.Test))
	mgr.Initialize()
	size := pm.Test.VirtualMemorySize()
	if err := mgr.Write(size, 1); err != ErrOutOfRange {
		t.Fatalf("write(%d) err = %v, want ErrOutOfRange", size, err)
	}
	if _, err := mgr.Read(size + 5); err != ErrOutOfRange {
		t.Fatalf("read err = %v, want ErrOutOfRange", err)
	}
}

func TestWriteReadSmallConfig(t *testing.T) {
	mgr := New(pm.New(pm.Test))
	mgr.Initialize()
	cfg := pm.Test
	for i := uint64(0); i < 2*cfg.NumFrames(); i++ {
		va := 5 * i * cfg.PageSize()
		if va >= cfg.VirtualMemorySize() {
			if err := mgr.Write(va, pm.Word(i)); err != ErrOutOfRange {
				t.Fatalf("write(%d) err = %v, want ErrOutOfRange", va, err)
			}
			continue
		}
		if err := mgr.Write(va, pm.Word(i)); err != nil {
			t.Fatalf("write(%d): %v", va, err)
		}
	}
	for i := uint64(0); i < 2*cfg.NumFrames(); i++ {
		va := 5 * i * cfg.PageSize()
		if va >= cfg.VirtualMemorySize() {
			continue
		}
		got, err := mgr.Read(va)
		if err != nil {
			t.Fatalf("read(%d): %v", va, err)
		}
		if got != pm.Word(i) {
			t.Fatalf("read(%d) = %v, want %v", va, got, i)
		}
	}
}

// TestWriteReadLoop is the bundled simple test on the normal geometry:
// twice as many pages as frames are written, so later writes evict
// earlier pages, and every value must survive the round trip through
// the swap file.
func TestWriteReadLoop(t *testing.T) {
	cfg := pm.Normal
	mgr := New(pm.New(cfg))
	mgr.Initialize()
	for i := uint64(0); i < 2*cfg.NumFrames(); i++ {
		if err := mgr.Write(5*i*cfg.PageSize(), pm.Word(i)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	for i := uint64(0); i < 2*cfg.NumFrames(); i++ {
		got, err := mgr.Read(5 * i * cfg.PageSize())
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got != pm.Word(i) {
			t.Fatalf("read %d = %v, want %v", i, got, i)
		}
	}
}

// TestPersistenceThroughEviction writes one word into every page of a
// machine with half as many frames as pages and checks each back.
func TestPersistenceThroughEviction(t *testing.T) {
	cfg := pm.Test
	mgr := New(pm.New(cfg))
	mgr.Initialize()
	for p := uint64(0); p < cfg.NumPages(); p++ {
		if err := mgr.Write(p*cfg.PageSize(), pm.Word(100+p)); err != nil {
			t.Fatalf("write page %d: %v", p, err)
		}
	}
	for p := uint64(0); p < cfg.NumPages(); p++ {
		got, err := mgr.Read(p * cfg.PageSize())
		if err != nil {
			t.Fatalf("read page %d: %v", p, err)
		}
		if got != pm.Word(100+p) {
			t.Fatalf("page %d = %v, want %v", p, got, 100+p)
		}
	}
}

// treeConfig is a 3-level geometry small enough to build page-table
// trees by hand: 2-entry tables, 16 frames, 8 pages.
var treeConfig = pm.Config{OffsetWidth: 1, PhysicalAddressWidth: 5, VirtualAddressWidth: 4}

// setEntries fills a frame's two slots.
func setEntries(m *pm.Memory, frame uint64, e0, e1 pm.Word) {
	m.Write(frame*2, e0)
	m.Write(frame*2+1, e1)
}

func TestEvictionPicksMaxCyclicDistance(t *testing.T) {
	m := pm.New(treeConfig)
	mgr := New(m)

	// pages 1, 3 and 5 resident; the last leaf is frame 15 so no
	// unused frame remains and the next fault must evict
	setEntries(m, 0, 1, 2)
	setEntries(m, 1, 3, 4)
	setEntries(m, 2, 5, 0)
	setEntries(m, 3, 0, 6)
	setEntries(m, 4, 0, 7)
	setEntries(m, 5, 0, 15)

	// fault in page 4: cyclic distances are 3 for page 1 and 1 for
	// pages 3 and 5, so page 1 goes to swap
	if _, err := mgr.Read(4 * treeConfig.PageSize()); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !m.PageInSwap(1) {
		t.Fatalf("page 1 not evicted")
	}
	if m.PageInSwap(3) || m.PageInSwap(5) {
		t.Fatalf("wrong page evicted")
	}
	// the evicted leaf's parent entry is detached
	if got := m.Read(3*2 + 1); got != 0 {
		t.Fatalf("evicted page still referenced by its parent: %v", got)
	}
}

func TestEvictionTieBreaksInDFSOrder(t *testing.T) {
	m := pm.New(treeConfig)
	mgr := New(m)

	// pages 3 and 5 resident, both at cyclic distance 1 from page 4
	setEntries(m, 0, 1, 2)
	setEntries(m, 1, 0, 3)
	setEntries(m, 2, 4, 0)
	setEntries(m, 3, 0, 5)
	setEntries(m, 4, 0, 15)

	if _, err := mgr.Read(4 * treeConfig.PageSize()); err != nil {
		t.Fatalf("read: %v", err)
	}
	// page 3 sits earlier in DFS order, so the tie goes to it
	if !m.PageInSwap(3) {
		t.Fatalf("page 3 not evicted on tie")
	}
	if m.PageInSwap(5) {
		t.Fatalf("page 5 evicted on tie, want page 3")
	}
}

func TestEmptyTableReusedBeforeFreshFrame(t *testing.T) {
	m := pm.New(treeConfig)
	mgr := New(m)

	// frame 1 is an all-zero inner table hanging off the root
	setEntries(m, 0, 1, 0)

	if _, err := mgr.Read(4 * treeConfig.PageSize()); err != nil {
		t.Fatalf("read: %v", err)
	}
	// the empty table was detached from slot 0 and relinked under
	// slot 1 for the new path
	if got := m.Read(0); got != 0 {
		t.Fatalf("empty table still linked at root slot 0: %v", got)
	}
	if got := m.Read(1); got != 1 {
		t.Fatalf("root slot 1 = %v, want reused frame 1", got)
	}
}

func TestCyclicDistance(t *testing.T) {
	mgr := New(pm.New(treeConfig)) // 8 pages
	cases := []struct {
		p, q, want uint64
	}{
		{4, 1, 3},
		{4, 3, 1},
		{4, 5, 1},
		{0, 7, 1},
		{1, 6, 3},
		{2, 2, 0},
	}
	for _, c := range cases {
		if got := mgr.cyclicDistance(c.p, c.q); got != c.want {
			t.Errorf("cyclicDistance(%d, %d) = %d, want %d", c.p, c.q, got, c.want)
		}
	}
}

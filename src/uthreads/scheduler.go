package uthreads

import (
	"sync"
	"time"

	"github.com/yair-shtern/OS/src/utils"
)

type threadState int

const (
	stateReady threadState = iota
	stateRunning
	stateBlocked
	stateSleep
)

// uthread is one thread record. The thread's execution context is its
// goroutine: a thread that is not running is parked inside the library
// waiting for l.running to point back at it, which plays the role the
// saved register set played in the original.
type uthread struct {
	tid         int
	state       threadState
	quantums    int
	sleeping    bool
	sleepQuanta int
	entry       func()
}

// threadExit unwinds a thread goroutine out of its entry function when
// the thread terminates itself.
type threadExit struct{}

type library struct {
	mu           sync.Mutex
	cond         *sync.Cond
	threads      [MaxThreadNum]*uthread
	free         [MaxThreadNum]bool
	readyQ       []*uthread
	running      *uthread
	quantums     int
	quantum      time.Duration
	lastDispatch time.Time
	// preemptPending is set by the clock goroutine when the current
	// quantum has expired; the running thread consumes it at its next
	// call into the library.
	preemptPending bool
	dead           bool
}

func newLibrary(quantumUsecs int) *library {
	l := &library{
		quantum:      time.Duration(quantumUsecs) * time.Microsecond,
		quantums:     1,
		lastDispatch: time.Now(),
	}
	l.cond = sync.NewCond(&l.mu)
	for i := range l.free {
		l.free[i] = true
	}
	main := &uthread{tid: 0, state: stateRunning, quantums: 1}
	l.threads[0] = main
	l.free[0] = false
	l.running = main
	go l.clock()
	return l
}

// clock is the quantum timer. It marks the quantum expired; the actual
// switch happens at the running thread's next preemption point. While
// a public operation holds the mutex the mark is deferred, the same
// way the original masked its timer signal.
func (l *library) clock() {
	poll := l.quantum / 4
	if poll < 100*time.Microsecond {
		poll = 100 * time.Microsecond
	}
	for {
		l.mu.Lock()
		if l.dead {
			l.mu.Unlock()
			return
		}
		pending := l.preemptPending
		wake := l.lastDispatch.Add(l.quantum)
		l.mu.Unlock()

		if pending {
			time.Sleep(poll)
			continue
		}
		if d := time.Until(wake); d > 0 {
			time.Sleep(d)
			continue
		}
		l.mu.Lock()
		if !l.dead && !l.preemptPending && time.Since(l.lastDispatch) >= l.quantum {
			l.preemptPending = true
			utils.Debug(utils.DTimer, "quantum expired for thread %d", l.running.tid)
		}
		l.mu.Unlock()
	}
}

// maybeYieldL is the preemption point at the top of every public
// operation. If the quantum expired, the caller hands the processor to
// the next ready thread and parks until it is dispatched again.
func (l *library) maybeYieldL() {
	if !l.preemptPending || l.running == nil {
		return
	}
	me := l.running
	l.dispatchL()
	for l.running != me {
		l.cond.Wait()
	}
}

// dispatchL starts a new quantum: wakes due sleepers, requeues the
// displaced thread if it is still runnable, and hands the processor to
// the head of the ready FIFO.
func (l *library) dispatchL() {
	l.quantums++
	l.tickSleepersL()
	prev := l.running
	if prev != nil && prev.state == stateRunning {
		prev.state = stateReady
		l.readyQ = append(l.readyQ, prev)
	}
	next := l.readyQ[0]
	l.readyQ = l.readyQ[1:]
	next.state = stateRunning
	next.quantums++
	l.running = next
	l.preemptPending = false
	l.lastDispatch = time.Now()
	utils.Debug(utils.DSched, "dispatch thread %d, total quanta %d", next.tid, l.quantums)
	l.cond.Broadcast()
}

// tickSleepersL counts down every sleeping thread; a thread whose
// timer expires re-enters the ready FIFO unless it is also blocked.
func (l *library) tickSleepersL() {
	for _, t := range l.threads {
		if t == nil || !t.sleeping {
			continue
		}
		t.sleepQuanta--
		if t.sleepQuanta == 0 {
			t.sleeping = false
			if t.state != stateBlocked {
				t.state = stateReady
				l.readyQ = append(l.readyQ, t)
			}
		}
	}
}

func (l *library) eraseFromReadyL(tid int) {
	for i, t := range l.readyQ {
		if t.tid == tid {
			l.readyQ = append(l.readyQ[:i], l.readyQ[i+1:]...)
			return
		}
	}
}

func (l *library) minFreeIDL() int {
	for i := 1; i < MaxThreadNum; i++ {
		if l.free[i] {
			l.free[i] = false
			return i
		}
	}
	return -1
}

func (l *library) invalidTidL(tid int) bool {
	return tid < 0 || tid >= MaxThreadNum || l.threads[tid] == nil
}

// run is the body of a spawned thread's goroutine. It parks until the
// scheduler dispatches the thread for the first time, runs the entry
// function, and terminates the thread if the entry returns on its own.
func (l *library) run(t *uthread) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(threadExit); !ok {
				panic(r)
			}
		}
	}()
	l.mu.Lock()
	for l.running != t {
		l.cond.Wait()
	}
	l.mu.Unlock()
	t.entry()
	Terminate(t.tid)
}

// Package uthreads is a user-level thread library with quantum-based
// round-robin scheduling, sleep, and block/resume. Threads are
// cooperative at library-call granularity: the quantum timer marks the
// running thread preempted and the switch is taken the next time it
// calls into the library, which is the substitute this port uses for
// the timer-signal preemption of the original design.
package uthreads

import (
	"fmt"
	"os"

	"github.com/yair-shtern/OS/src/utils"
)

const (
	// MaxThreadNum bounds concurrent threads, main included.
	MaxThreadNum = 100
	// StackSize is the per-thread stack budget of the original API.
	// Goroutine stacks grow on demand, so it is kept only as the
	// documented sizing knob.
	StackSize = 4096
)

const (
	errNotInitialized  = "thread library error: library is not initialized."
	errNegativeQuantum = "thread library error: quantum_usecs must be positive integer."
	errNullEntry       = "thread library error: spawn can't get null entry point."
	errMaxThreads      = "thread library error: exceeded the max number of allowed threads."
	errTerminate       = "thread library error: trying to terminate a non valid thread with non-valid id."
	errBlock           = "thread library error: trying to block thread with non-valid id."
	errResume          = "thread library error: trying to resume a thread with non-valid id."
	errQuantum         = "thread library error: trying to get quantums of thread with non-valid id."
	errSleep           = "thread library error: trying to send to sleep the main thread."
)

var lib *library

// exitFunc is swapped out by tests of the Terminate(0) teardown path.
var exitFunc = os.Exit

func libraryError(msg string) int {
	fmt.Fprintln(os.Stderr, msg)
	return -1
}

// Init initializes the thread library with the given quantum length in
// microseconds and records the caller as the main thread (tid 0),
// already running its first quantum. It must be called before any
// other library function.
func Init(quantumUsecs int) int {
	if quantumUsecs <= 0 {
		return libraryError(errNegativeQuantum)
	}
	if lib != nil {
		// a previous instance keeps its parked goroutines; only its
		// clock must stop
		lib.mu.Lock()
		lib.dead = true
		lib.mu.Unlock()
	}
	lib = newLibrary(quantumUsecs)
	return 0
}

// Spawn creates a new thread running entry, assigns it the smallest
// free tid, and appends it to the end of the ready FIFO.
func Spawn(entry func()) int {
	l := lib
	if l == nil {
		return libraryError(errNotInitialized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeYieldL()
	if entry == nil {
		return libraryError(errNullEntry)
	}
	tid := l.minFreeIDL()
	if tid == -1 {
		return libraryError(errMaxThreads)
	}
	t := &uthread{tid: tid, state: stateReady, entry: entry}
	l.threads[tid] = t
	l.readyQ = append(l.readyQ, t)
	utils.Debug(utils.DSpawn, "spawned thread %d", tid)
	go l.run(t)
	return tid
}

// Terminate removes the thread with the given tid from all control
// structures and frees its id. Terminating tid 0 tears the library
// down and exits the process with status 0. A thread terminating
// itself does not return: a fresh quantum starts and the next ready
// thread is dispatched.
func Terminate(tid int) int {
	l := lib
	if l == nil {
		return libraryError(errNotInitialized)
	}
	l.mu.Lock()
	l.maybeYieldL()
	if tid == 0 {
		l.dead = true
		l.mu.Unlock()
		exitFunc(0)
		return 0
	}
	if l.invalidTidL(tid) {
		l.mu.Unlock()
		return libraryError(errTerminate)
	}
	self := l.running != nil && l.running.tid == tid
	l.eraseFromReadyL(tid)
	l.threads[tid] = nil
	l.free[tid] = true
	utils.Debug(utils.DTerminate, "terminated thread %d", tid)
	if self {
		l.running = nil
		l.dispatchL()
		l.mu.Unlock()
		panic(threadExit{})
	}
	l.mu.Unlock()
	return 0
}

// Block moves the thread with the given tid to the blocked state.
// Blocking the main thread is an error; blocking an already blocked
// thread has no effect. A thread blocking itself yields immediately.
func Block(tid int) int {
	l := lib
	if l == nil {
		return libraryError(errNotInitialized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeYieldL()
	if tid == 0 || l.invalidTidL(tid) {
		return libraryError(errBlock)
	}
	t := l.threads[tid]
	t.state = stateBlocked
	l.eraseFromReadyL(tid)
	utils.Debug(utils.DBlock, "blocked thread %d", tid)
	if l.running == t {
		l.dispatchL()
		for l.running != t {
			l.cond.Wait()
		}
	}
	return 0
}

// Resume moves a blocked thread back to the ready FIFO. Resuming a
// ready or running thread has no effect, and neither has resuming a
// thread whose sleep timer is still running: a thread blocked while
// asleep stays blocked when the timer expires and needs a Resume made
// after the expiry.
func Resume(tid int) int {
	l := lib
	if l == nil {
		return libraryError(errNotInitialized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeYieldL()
	if l.invalidTidL(tid) {
		return libraryError(errResume)
	}
	t := l.threads[tid]
	if !t.sleeping && (t.state == stateBlocked || t.state == stateSleep) {
		t.state = stateReady
		l.readyQ = append(l.readyQ, t)
	}
	return 0
}

// Sleep puts the calling thread to sleep for numQuanta quantums. The
// quantum in which the call is made does not count. The main thread
// may not sleep.
func Sleep(numQuanta int) int {
	l := lib
	if l == nil {
		return libraryError(errNotInitialized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeYieldL()
	me := l.running
	if me.tid == 0 {
		return libraryError(errSleep)
	}
	me.state = stateSleep
	me.sleeping = true
	// the current quantum does not count, so one extra tick
	me.sleepQuanta = numQuanta + 1
	utils.Debug(utils.DSleep, "thread %d sleeping for %d quanta", me.tid, numQuanta)
	l.dispatchL()
	for l.running != me {
		l.cond.Wait()
	}
	return 0
}

// GetTid returns the tid of the calling thread.
func GetTid() int {
	l := lib
	if l == nil {
		return libraryError(errNotInitialized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeYieldL()
	return l.running.tid
}

// GetTotalQuantums returns the total number of quantums since Init,
// the current one included. Right after Init the value is 1.
func GetTotalQuantums() int {
	l := lib
	if l == nil {
		return libraryError(errNotInitialized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeYieldL()
	return l.quantums
}

// GetQuantums returns the number of quantums the thread with the given
// tid has spent running, the current one included if it is running.
func GetQuantums(tid int) int {
	l := lib
	if l == nil {
		return libraryError(errNotInitialized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeYieldL()
	if l.invalidTidL(tid) {
		return libraryError(errQuantum)
	}
	return l.threads[tid].quantums
}

// Package reclaim implements the Reclamation Tracker (spec §4.6): lazy
// server-side Close Statement/Close Portal emission driven by ordinary Go
// garbage collection instead of explicit reference counting. It mirrors
// the teacher's pattern of hanging cleanup work off finalizers rather
// than requiring callers to remember to call a Close method.
package reclaim

import "runtime"

// dropQueueSize bounds how many dead names can accumulate between safe
// points before new ones are silently dropped. A dropped entry just means
// that statement/portal lingers server-side until the connection itself
// closes — harmless, never incorrect.
const dropQueueSize = 1024

// Tracker owns the two reclamation queues described in spec §3
// ("Reclamation sets"): one for prepared-statement names, one for portal
// names. Both are populated from finalizers and drained from ordinary
// goroutines at the two safe points named in §4.6.
type Tracker struct {
	stmts   chan string
	portals chan string
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		stmts:   make(chan string, dropQueueSize),
		portals: make(chan string, dropQueueSize),
	}
}

// TrackStatement arranges for name to be enqueued for a Close Statement
// once owner becomes unreachable. name == "" (the unnamed statement, or a
// oneShot query that never got a server-side name) is a no-op — there is
// nothing to close. Because a Portal struct holds a strong reference to
// its owning Query, a Query tracked here cannot actually become
// unreachable until every Portal bound from it already has — satisfying
// the ordering note in spec §3/§4.6 without any extra bookkeeping here.
func (t *Tracker) TrackStatement(owner interface{}, name string) {
	if name == "" {
		return
	}
	runtime.SetFinalizer(owner, func(interface{}) {
		t.enqueue(t.stmts, name)
	})
}

// TrackPortal arranges for name to be enqueued for a Close Portal once
// owner becomes unreachable. name == "" (the unnamed portal) is a no-op.
func (t *Tracker) TrackPortal(owner interface{}, name string) {
	if name == "" {
		return
	}
	runtime.SetFinalizer(owner, func(interface{}) {
		t.enqueue(t.portals, name)
	})
}

func (t *Tracker) enqueue(ch chan string, name string) {
	select {
	case ch <- name:
	default:
	}
}

// DrainStatements removes and returns every statement name currently
// queued for a Close Statement. Called at the two safe points named in
// spec §4.6: the start of sendQueryPreamble and the start of fetch.
func (t *Tracker) DrainStatements() []string {
	return drain(t.stmts)
}

// DrainPortals removes and returns every portal name currently queued
// for a Close Portal.
func (t *Tracker) DrainPortals() []string {
	return drain(t.portals)
}

func drain(ch chan string) []string {
	var names []string
	for {
		select {
		case name := <-ch:
			names = append(names, name)
		default:
			return names
		}
	}
}

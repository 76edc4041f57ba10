// Package master implements the master half of the system: the
// namespace (via internal/inode), worker membership and placement, and
// the MasterService RPC surface that composes them under one lock.
// WorkerRegistry exclusively owns Worker records; placementIndex holds
// only non-owning file-id <-> worker-id relations.
package master

import (
	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/queue"
	"github.com/tachyoncache/tachyon/internal/rpc"
)

// Worker is the WorkerRegistry's record for a live worker. The resident
// file-id set is intentionally absent here -- it is owned by
// placementIndex, not duplicated onto the worker record.
type Worker struct {
	ID            int32
	Address       rpc.NetAddress
	TotalBytes    int64
	UsedBytes     int64
	LastContactMs int64
	StartTimeMs   int64
}

// workerRegistry owns Worker records and each worker's pending command
// FIFO. Not safe for concurrent use on its own -- the composing
// MasterService serializes access under its own lock.
type workerRegistry struct {
	clk          clock.Clock
	startTimeMs  int64
	nextWorkerID int32
	workers      map[int32]*Worker
	commands     map[int32]queue.Queue[rpc.Command]
}

func newWorkerRegistry(clk clock.Clock) *workerRegistry {
	return &workerRegistry{
		clk:          clk,
		startTimeMs:  clk.Now().UnixMilli(),
		nextWorkerID: 1,
		workers:      make(map[int32]*Worker),
		commands:     make(map[int32]queue.Queue[rpc.Command]),
	}
}

// register creates a Worker record for addr under a newly assigned id
// and returns it; an earlier record for the same addr is left in place.
// Service.WorkerRegister encodes the reply value from the returned record.
func (r *workerRegistry) register(addr rpc.NetAddress, totalBytes, usedBytes int64) *Worker {
	id := r.nextWorkerID
	r.nextWorkerID++

	w := &Worker{
		ID:            id,
		Address:       addr,
		TotalBytes:    totalBytes,
		UsedBytes:     usedBytes,
		LastContactMs: r.clk.Now().UnixMilli(),
		StartTimeMs:   r.startTimeMs,
	}
	r.workers[id] = w
	r.commands[id] = queue.New[rpc.Command]()
	return w
}

// get returns the worker record for id, if it is currently live.
func (r *workerRegistry) get(id int32) (*Worker, bool) {
	w, ok := r.workers[id]
	return w, ok
}

// touch updates a live worker's usage and last-contact time.
func (r *workerRegistry) touch(id int32, usedBytes int64) bool {
	w, ok := r.workers[id]
	if !ok {
		return false
	}
	w.UsedBytes = usedBytes
	w.LastContactMs = r.clk.Now().UnixMilli()
	return true
}

// enqueue appends a command to worker id's FIFO. A missing worker is a
// silent no-op: the worker will be told to Register on its next RPC
// regardless, since it is no longer known to the registry.
func (r *workerRegistry) enqueue(id int32, cmd rpc.Command) {
	q, ok := r.commands[id]
	if !ok {
		return
	}
	q.Push(cmd)
}

// drain pops the single next command for a worker's heartbeat reply, or
// CommandNothing if none is queued. Queued commands always take
// precedence over Nothing: Nothing is never itself enqueued, so the
// absence of a queued command IS the Nothing default.
func (r *workerRegistry) drain(id int32) rpc.Command {
	q, ok := r.commands[id]
	if !ok || q.IsEmpty() {
		return rpc.Command{Type: rpc.CommandNothing}
	}
	return q.Pop()
}

// remove drops a worker's record and command queue (timeout or
// explicit deregistration). It does not touch placementIndex; the
// caller is responsible for reconciling that under the same lock.
func (r *workerRegistry) remove(id int32) {
	delete(r.workers, id)
	delete(r.commands, id)
}

// evictTimedOut removes every worker whose LastContactMs is older than
// nowMs - timeoutMs, returning their ids.
func (r *workerRegistry) evictTimedOut(timeoutMs int64) []int32 {
	nowMs := r.clk.Now().UnixMilli()
	var timedOut []int32
	for id, w := range r.workers {
		if nowMs-w.LastContactMs > timeoutMs {
			timedOut = append(timedOut, id)
		}
	}
	for _, id := range timedOut {
		r.remove(id)
	}
	return timedOut
}

// list returns a snapshot of every live worker, in no particular order.
func (r *workerRegistry) list() []Worker {
	out := make([]Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, *w)
	}
	return out
}

// liveIDs returns the ids of every currently registered worker.
func (r *workerRegistry) liveIDs() []int32 {
	out := make([]int32, 0, len(r.workers))
	for id := range r.workers {
		out = append(out, id)
	}
	return out
}

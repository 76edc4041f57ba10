package master

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/rpc"
)

func TestWorkerRegistry_RegisterAssignsIncreasingIDs(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	r := newWorkerRegistry(clk)

	w1 := r.register(rpc.NetAddress{Host: "a"}, 100, 0)
	w2 := r.register(rpc.NetAddress{Host: "b"}, 100, 0)

	assert.Equal(t, int32(1), w1.ID)
	assert.Equal(t, int32(2), w2.ID)
	assert.Equal(t, w1.StartTimeMs, w2.StartTimeMs)
}

func TestWorkerRegistry_DrainDefaultsToNothing(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	r := newWorkerRegistry(clk)
	w := r.register(rpc.NetAddress{Host: "a"}, 100, 0)

	cmd := r.drain(w.ID)
	assert.Equal(t, rpc.CommandNothing, cmd.Type)
}

func TestWorkerRegistry_EnqueueThenDrainFIFO(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	r := newWorkerRegistry(clk)
	w := r.register(rpc.NetAddress{Host: "a"}, 100, 0)

	r.enqueue(w.ID, rpc.Command{Type: rpc.CommandFree, Data: []int32{1}})
	r.enqueue(w.ID, rpc.Command{Type: rpc.CommandDelete, Data: []int32{2}})

	first := r.drain(w.ID)
	require.Equal(t, rpc.CommandFree, first.Type)
	assert.Equal(t, []int32{1}, first.Data)

	second := r.drain(w.ID)
	require.Equal(t, rpc.CommandDelete, second.Type)
	assert.Equal(t, []int32{2}, second.Data)

	third := r.drain(w.ID)
	assert.Equal(t, rpc.CommandNothing, third.Type)
}

func TestWorkerRegistry_TouchUnknownWorkerFails(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	r := newWorkerRegistry(clk)
	assert.False(t, r.touch(999, 10))
}

func TestWorkerRegistry_EvictTimedOut(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	r := newWorkerRegistry(clk)
	w1 := r.register(rpc.NetAddress{Host: "a"}, 100, 0)
	w2 := r.register(rpc.NetAddress{Host: "b"}, 100, 0)

	clk.AdvanceTime(5 * time.Second)
	r.touch(w2.ID, 0) // w2 stays fresh, w1 goes stale.

	clk.AdvanceTime(10 * time.Second)
	timedOut := r.evictTimedOut(12_000)

	require.Len(t, timedOut, 1)
	assert.Equal(t, w1.ID, timedOut[0])
	_, ok := r.get(w1.ID)
	assert.False(t, ok)
	_, ok = r.get(w2.ID)
	assert.True(t, ok)
}

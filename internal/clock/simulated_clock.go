// Copyright 2026 The Tachyon Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clock

import (
	"sync"
	"time"
)

// afterRequest holds the information for a pending After call in SimulatedClock.
type afterRequest struct {
	targetTime time.Time
	ch         chan time.Time
}

// SimulatedClock is a clock that allows for manipulation of the time, which
// does not change unless AdvanceTime or SetTime is called. It lets the
// master/worker integration tests exercise heartbeat timeouts and LRU
// recency without sleeping on wall time. The zero value is a clock
// initialized to the zero time.
type SimulatedClock struct {
	mu      sync.RWMutex
	t       time.Time       // GUARDED_BY(mu)
	pending []*afterRequest // GUARDED_BY(mu)
}

var _ Clock = &SimulatedClock{}

// NewSimulatedClock returns a clock whose current time is startTime.
func NewSimulatedClock(startTime time.Time) *SimulatedClock {
	return &SimulatedClock{
		t: startTime,
	}
}

// Now returns the simulated current time.
func (sc *SimulatedClock) Now() time.Time {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	return sc.t
}

// SetTime sets the current time according to the clock, firing any pending
// After calls whose target time has been reached.
func (sc *SimulatedClock) SetTime(t time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.t = t
	sc.processPending()
}

// AdvanceTime advances the current time by d, firing any pending After
// calls whose target time has been reached.
func (sc *SimulatedClock) AdvanceTime(d time.Duration) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.t = sc.t.Add(d)
	sc.processPending()
}

// After returns a channel that receives the simulated time once d has
// elapsed according to the clock. A non-positive duration fires
// immediately, matching time.After.
func (sc *SimulatedClock) After(d time.Duration) <-chan time.Time {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	ch := make(chan time.Time, 1)
	target := sc.t.Add(d)

	if !target.After(sc.t) {
		ch <- sc.t
		return ch
	}

	sc.pending = append(sc.pending, &afterRequest{targetTime: target, ch: ch})
	return ch
}

// processPending fires any pending After requests whose target time has
// been reached or passed. Requires sc.mu held.
func (sc *SimulatedClock) processPending() {
	var stillPending []*afterRequest

	for _, ar := range sc.pending {
		if !sc.t.Before(ar.targetTime) {
			ar.ch <- ar.targetTime
		} else {
			stillPending = append(stillPending, ar)
		}
	}

	sc.pending = stillPending
}

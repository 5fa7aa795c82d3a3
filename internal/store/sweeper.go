/*
Copyright (C) 2026  rkv contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package store

import (
	"context"
	"time"
)

// sweepSampleSize bounds how many hint-index entries a single sweep pass
// inspects, keeping each pass O(1) relative to total key count.
const sweepSampleSize = 20

// Sweeper drives active expiration: it samples the hint index, deletes
// anything past its deadline, and adapts its own interval to the observed
// hit ratio so a quiet database sleeps longer and a database full of
// expiring keys sweeps faster.
type Sweeper struct {
	db       *Db
	interval time.Duration // current sleep between passes, ms-resolution
	weight   float64       // smoothed previous-pass weight
	pPrev    float64       // smoothed p' from the previous pass
}

// NewSweeper builds a sweeper starting at a 1s interval, matching the
// "quiescent" steady state of the adaptive formula below.
func NewSweeper(db *Db) *Sweeper {
	return &Sweeper{db: db, interval: time.Second, weight: 43.0}
}

// Run drives the sweep loop until ctx is cancelled. It also ticks the LRU
// clock once a minute, since that's driven by the same background loop in
// the teacher's design.
func (sw *Sweeper) Run(ctx context.Context) {
	lastClockTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(sw.interval):
		}
		sw.pass()
		if now := time.Now(); now.Sub(lastClockTick) >= time.Minute {
			TickLRUClock()
			lastClockTick = now
		}
	}
}

// pass samples up to sweepSampleSize keys from the hint index, removes
// expired ones, and recomputes the next interval from the observed hit
// percentage p using the smoothed formula:
//
//	p'    = (p_old*w_old + p*w_new) / 100
//	ms    = clamp(1000 - 10*p', 100, 1000)
//	w_new = ms/54 + 430/9
//
// which is the same shape as Redis's activeExpireCycle adaptive duty
// cycle: a higher expired-ratio shortens the sleep, a lower ratio lengthens
// it, and the weight term smooths against a single noisy sample.
func (sw *Sweeper) pass() {
	now := time.Now()
	sw.db.expireMu.Lock()
	sample := make([]Key, 0, sweepSampleSize)
	for k := range sw.db.expireRecords {
		sample = append(sample, k)
		if len(sample) >= sweepSampleSize {
			break
		}
	}
	sw.db.expireMu.Unlock()

	if len(sample) == 0 {
		sw.interval = time.Second
		return
	}

	expired := 0
	for _, k := range sample {
		s := sw.db.shardFor(k)
		s.mu.Lock()
		o, ok := s.entries[k]
		wasExpired := ok && o.Expired(now)
		if wasExpired {
			delete(s.entries, k)
		}
		s.mu.Unlock()
		if wasExpired {
			expired++
		}
		if wasExpired || !ok {
			sw.db.forgetExpire(k)
		}
	}

	p := float64(expired) * 100.0 / float64(len(sample))
	wNew := float64(sw.interval.Milliseconds())/54.0 + 430.0/9.0
	wOld := 100.0 - wNew
	pPrime := (sw.pPrev*wOld + p*wNew) / 100.0
	sw.pPrev = pPrime
	ms := 1000.0 - 10.0*pPrime
	if ms < 100 {
		ms = 100
	}
	if ms > 1000 {
		ms = 1000
	}
	sw.interval = time.Duration(ms) * time.Millisecond
	sw.weight = wNew
}

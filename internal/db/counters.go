package db

import "sync/atomic"

// Counters tracks would-be writes during a dry-run, and actual writes
// during a real run, so the orchestrator can report a summary either way.
type Counters struct {
	EntranceUpserts int64
	InterUpserts    int64
	IntraUpserts    int64
	Deletes         int64
}

func (c *Counters) addEntrance() { atomic.AddInt64(&c.EntranceUpserts, 1) }
func (c *Counters) addInter()    { atomic.AddInt64(&c.InterUpserts, 1) }
func (c *Counters) addIntra()    { atomic.AddInt64(&c.IntraUpserts, 1) }
func (c *Counters) addDelete()   { atomic.AddInt64(&c.Deletes, 1) }

// Snapshot returns a copy safe to read after all workers complete.
func (c *Counters) Snapshot() Counters {
	return Counters{
		EntranceUpserts: atomic.LoadInt64(&c.EntranceUpserts),
		InterUpserts:    atomic.LoadInt64(&c.InterUpserts),
		IntraUpserts:    atomic.LoadInt64(&c.IntraUpserts),
		Deletes:         atomic.LoadInt64(&c.Deletes),
	}
}

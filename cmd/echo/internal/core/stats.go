package core

import "sync/atomic"

// Stats counts served connections by outcome. The echo loop is the only
// writer; the health server reads snapshots from another goroutine.
type Stats struct {
	accepted     atomic.Int64
	acceptErrors atomic.Int64
	echoed       atomic.Int64
	overflowed   atomic.Int64
	empty        atomic.Int64
	readErrors   atomic.Int64
	writeErrors  atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Accepted     int64 `json:"accepted" yaml:"accepted"`
	AcceptErrors int64 `json:"accept_errors" yaml:"accept_errors"`
	Echoed       int64 `json:"echoed" yaml:"echoed"`
	Overflowed   int64 `json:"overflowed" yaml:"overflowed"`
	Empty        int64 `json:"empty" yaml:"empty"`
	ReadErrors   int64 `json:"read_errors" yaml:"read_errors"`
	WriteErrors  int64 `json:"write_errors" yaml:"write_errors"`
}

func (s *Stats) Accepted() {
	if s != nil {
		s.accepted.Add(1)
	}
}

func (s *Stats) AcceptFailed() {
	if s != nil {
		s.acceptErrors.Add(1)
	}
}

// Observe counts a finished session.
func (s *Stats) Observe(o Outcome) {
	if s == nil {
		return
	}
	switch o {
	case OutcomeEchoed:
		s.echoed.Add(1)
	case OutcomeOverflow:
		s.overflowed.Add(1)
	case OutcomeEmpty:
		s.empty.Add(1)
	case OutcomeReadError:
		s.readErrors.Add(1)
	case OutcomeWriteError:
		s.writeErrors.Add(1)
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Accepted:     s.accepted.Load(),
		AcceptErrors: s.acceptErrors.Load(),
		Echoed:       s.echoed.Load(),
		Overflowed:   s.overflowed.Load(),
		Empty:        s.empty.Load(),
		ReadErrors:   s.readErrors.Load(),
		WriteErrors:  s.writeErrors.Load(),
	}
}

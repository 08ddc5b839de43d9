package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/shoplens/engine"
)

// Session limits used when none are configured.
const (
	DefaultMaxSessions = 1000
	DefaultSessionTTL  = 30 * time.Minute
)

// session is one client's view: its filters and the report derived from them.
type session struct {
	id        string
	createdAt time.Time

	mu         sync.Mutex
	query      query
	report     *engine.Report
	generation uint64
	lastUsed   time.Time
}

func newSession(q query, now time.Time) *session {
	return &session{
		id:        uuid.NewString(),
		createdAt: now,
		query:     q,
		lastUsed:  now,
	}
}

// setQuery replaces the filters and drops the cached report.
func (ss *session) setQuery(q query) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.query = q
	ss.report = nil
}

func (ss *session) currentQuery() query {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.query
}

func (ss *session) touch(now time.Time) {
	ss.mu.Lock()
	ss.lastUsed = now
	ss.mu.Unlock()
}

func (ss *session) idleSince() time.Time {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.lastUsed
}

// reportFor returns the cached report when it was built from ds, or
// computes and caches a new one. cached reports whether the cache was used.
func (ss *session) reportFor(ds *dataset, compute func(*dataset, query) (*engine.Report, error)) (report *engine.Report, cached bool, err error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.report != nil && ss.generation == ds.generation {
		return ss.report, true, nil
	}
	report, err = compute(ds, ss.query)
	if err != nil {
		return nil, false, err
	}
	ss.report = report
	ss.generation = ds.generation
	return report, false, nil
}

// ============================================================================
// SESSION TABLE
// ============================================================================
// Sessions idle longer than the TTL are dropped on lookup and by the sweeper
// started in Run. When the table is full, creating a session evicts the one
// idle the longest.
// ============================================================================

func (s *Server) createSession(q query) *session {
	now := s.now()
	ss := newSession(q, now)

	s.mu.Lock()
	evicted := s.sweepLocked(now)
	for len(s.sessions) >= s.cfg.MaxSessions {
		s.evictOldestLocked()
		evicted++
	}
	s.sessions[ss.id] = ss
	n := len(s.sessions)
	s.mu.Unlock()

	s.recordSessions(n, evicted)
	return ss
}

// session returns a live session and marks it used.
func (s *Server) session(id string) (*session, bool) {
	now := s.now()

	s.mu.RLock()
	ss, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.expired(ss, now) {
		s.mu.Lock()
		if cur, still := s.sessions[id]; still && cur == ss {
			delete(s.sessions, id)
		}
		n := len(s.sessions)
		s.mu.Unlock()
		s.recordSessions(n, 1)
		return nil, false
	}
	ss.touch(now)
	return ss, true
}

func (s *Server) deleteSession(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SessionsActive.Set(float64(n))
	return ok
}

// sweepSessions drops every expired session and returns how many went.
func (s *Server) sweepSessions() int {
	s.mu.Lock()
	evicted := s.sweepLocked(s.now())
	n := len(s.sessions)
	s.mu.Unlock()
	s.recordSessions(n, evicted)
	return evicted
}

func (s *Server) expired(ss *session, now time.Time) bool {
	return s.cfg.SessionTTL > 0 && now.Sub(ss.idleSince()) > s.cfg.SessionTTL
}

func (s *Server) sweepLocked(now time.Time) int {
	evicted := 0
	for id, ss := range s.sessions {
		if s.expired(ss, now) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (s *Server) evictOldestLocked() {
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.sessions[ids[i]].idleSince().Before(s.sessions[ids[j]].idleSince())
	})
	if len(ids) > 0 {
		delete(s.sessions, ids[0])
	}
}

func (s *Server) recordSessions(active, evicted int) {
	s.metrics.SessionsActive.Set(float64(active))
	if evicted > 0 {
		s.metrics.SessionsEvicted.Add(float64(evicted))
		s.log.WithFields(logrus.Fields{"evicted": evicted, "active": active}).Debug("sessions evicted")
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/soapscribe/internal/transcriber"
)

var ErrSessionNotFound = errors.New("recording session not found")

type Segment struct {
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type Snapshot struct {
	ID         string    `json:"id"`
	Transcript string    `json:"transcript"`
	Segments   []Segment `json:"segments"`
	StartedAt  time.Time `json:"startedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Manager accumulates a running transcript per recording session. Chunks
// of one session are processed one at a time so text is appended in
// submission order; distinct sessions proceed in parallel.
type Manager struct {
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*recording
}

type recording struct {
	// lock is a one-slot semaphore held for the whole forward of one chunk.
	lock      chan struct{}
	id        string
	segments  []Segment
	nextIndex int
	startedAt time.Time
	updatedAt time.Time
	closed    bool
}

func NewManager(idleTimeout time.Duration) *Manager {
	return &Manager{
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*recording),
	}
}

// Process runs forward while holding the session lock and appends a
// non-empty result to the session transcript. If ctx ends while the chunk
// is still queued behind another chunk of the same session, Process returns
// ctx's error without calling forward.
func (m *Manager) Process(ctx context.Context, sessionID string, forward func(context.Context) (transcriber.Result, error)) (transcriber.Result, Snapshot, error) {
	for {
		rec := m.getOrCreate(sessionID)
		if err := rec.acquire(ctx); err != nil {
			return transcriber.Result{}, Snapshot{}, fmt.Errorf("wait for session %s: %w", sessionID, err)
		}
		if rec.closed {
			// Swept or closed while waiting for the lock; start over with a fresh session.
			rec.release()
			continue
		}
		res, err := forward(ctx)
		if err != nil {
			rec.updatedAt = m.now()
			snap := rec.snapshot()
			rec.release()
			return transcriber.Result{}, snap, err
		}
		if text := strings.TrimSpace(res.Text); text != "" {
			rec.segments = append(rec.segments, Segment{
				Index:      rec.nextIndex,
				Text:       text,
				Confidence: res.Confidence,
				ReceivedAt: m.now(),
			})
			rec.nextIndex++
		}
		rec.updatedAt = m.now()
		snap := rec.snapshot()
		rec.release()
		return res, snap, nil
	}
}

func (m *Manager) Get(sessionID string) (Snapshot, error) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	rec.acquireBlocking()
	defer rec.release()
	return rec.snapshot(), nil
}

// Close removes the session and returns its final state. It waits for an
// in-flight chunk of the same session to finish.
func (m *Manager) Close(sessionID string) (Snapshot, error) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	rec.acquireBlocking()
	defer rec.release()
	rec.closed = true
	slog.Info("recording session closed", "session_id", sessionID, "segments", len(rec.segments))
	return rec.snapshot(), nil
}

// SweepIdle drops sessions not updated within the idle timeout. Sessions
// with a chunk in flight are skipped.
func (m *Manager) SweepIdle() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTimeout)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, rec := range m.sessions {
		if !rec.tryAcquire() {
			continue
		}
		if rec.updatedAt.Before(cutoff) {
			rec.closed = true
			delete(m.sessions, id)
			removed++
		}
		rec.release()
	}
	if removed > 0 {
		slog.Info("idle recording sessions swept", "removed", removed)
	}
	return removed
}

// RunSweeper calls SweepIdle periodically until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepIdle()
		}
	}
}

func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) getOrCreate(sessionID string) *recording {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		now := m.now()
		rec = &recording{lock: make(chan struct{}, 1), id: sessionID, startedAt: now, updatedAt: now}
		m.sessions[sessionID] = rec
		slog.Info("recording session started", "session_id", sessionID)
	}
	return rec
}

func (r *recording) acquire(ctx context.Context) error {
	select {
	case r.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *recording) acquireBlocking() {
	r.lock <- struct{}{}
}

func (r *recording) tryAcquire() bool {
	select {
	case r.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *recording) release() {
	<-r.lock
}

func (r *recording) snapshot() Snapshot {
	segments := make([]Segment, len(r.segments))
	copy(segments, r.segments)
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return Snapshot{
		ID:         r.id,
		Transcript: strings.Join(texts, " "),
		Segments:   segments,
		StartedAt:  r.startedAt,
		UpdatedAt:  r.updatedAt,
	}
}

package fieldwork

import (
	"sync"
	"time"

	"zoneroute/internal/models"
)

// ShiftTimer records clock-in and clock-out times for one worker session.
type ShiftTimer struct {
	mu    sync.Mutex
	now   func() time.Time
	shift models.Shift
}

// NewShiftTimer creates a timer; now defaults to time.Now.
func NewShiftTimer(now func() time.Time) *ShiftTimer {
	if now == nil {
		now = time.Now
	}
	return &ShiftTimer{now: now}
}

// ClockIn starts a shift. It is a no-op returning false while clocked in.
// The previous end time is kept until the next clock-out.
func (s *ShiftTimer) ClockIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shift.ClockedIn {
		return false
	}
	t := s.now()
	s.shift.ClockedIn = true
	s.shift.StartTime = &t
	return true
}

// ClockOut ends the shift. It is a no-op returning false when not clocked in.
func (s *ShiftTimer) ClockOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.shift.ClockedIn {
		return false
	}
	t := s.now()
	s.shift.ClockedIn = false
	s.shift.EndTime = &t
	return true
}

// Snapshot returns a copy of the current shift.
func (s *ShiftTimer) Snapshot() models.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := models.Shift{ClockedIn: s.shift.ClockedIn}
	if s.shift.StartTime != nil {
		t := *s.shift.StartTime
		out.StartTime = &t
	}
	if s.shift.EndTime != nil {
		t := *s.shift.EndTime
		out.EndTime = &t
	}
	return out
}

// Elapsed is the time since clock-in, or the length of the last shift when
// clocked out.
func (s *ShiftTimer) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.shift.StartTime == nil:
		return 0
	case s.shift.ClockedIn:
		return s.now().Sub(*s.shift.StartTime)
	case s.shift.EndTime != nil && s.shift.EndTime.After(*s.shift.StartTime):
		return s.shift.EndTime.Sub(*s.shift.StartTime)
	}
	return 0
}

package models

import "time"

// TaskPhoto is a photo captured while completing one action at a stop
type TaskPhoto struct {
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
}

// Task is the worker-side unit of work for one client on a route. It only
// lives as long as the loaded route.
type Task struct {
	ClientID         int         `json:"clientId"`
	Lat              float64     `json:"lat"`
	Lng              float64     `json:"lng"`
	ActionsRemaining int         `json:"actionsRemaining"`
	PhotoLogs        []TaskPhoto `json:"photoLogs"`
}

// NewTask derives a fresh task from a route client.
func NewTask(c Client) Task {
	return Task{
		ClientID:         c.ID,
		Lat:              c.Lat,
		Lng:              c.Lng,
		ActionsRemaining: c.Actions,
		PhotoLogs:        []TaskPhoto{},
	}
}

// Done reports whether no actions remain.
func (t *Task) Done() bool {
	return t.ActionsRemaining <= 0
}

// Clone returns a copy that does not share the photo log slice.
func (t Task) Clone() Task {
	logs := make([]TaskPhoto, len(t.PhotoLogs))
	copy(logs, t.PhotoLogs)
	t.PhotoLogs = logs
	return t
}

// Shift is one clock-in/clock-out session for a worker
type Shift struct {
	ClockedIn bool       `json:"clockedIn"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

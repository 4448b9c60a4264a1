// Package fieldwork holds the worker dashboard state: the task ledger for
// the loaded route, photo completion and the shift timer.
package fieldwork

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"zoneroute/internal/models"
)

var (
	ErrTaskIndex          = errors.New("fieldwork: task index out of range")
	ErrNoActionsRemaining = errors.New("fieldwork: no actions remaining")
	ErrNoRoute            = errors.New("fieldwork: no route loaded")
)

// RouteSource loads a worker's route and a client's photo history.
type RouteSource interface {
	Route(ctx context.Context, worker string) ([]models.Client, error)
	PhotoLogs(ctx context.Context, clientID int) ([]models.PhotoLog, error)
}

// Ledger tracks per-stop progress for the currently loaded route.
type Ledger struct {
	source RouteSource

	mu     sync.RWMutex
	worker string
	route  []models.Client
	tasks  []models.Task
	// versions holds the last client version seen per task
	versions []int64
}

func NewLedger(source RouteSource) *Ledger {
	return &Ledger{source: source}
}

// LoadRoute fetches the route for worker and rebuilds every task from
// scratch. Progress from a previous load is discarded.
func (l *Ledger) LoadRoute(ctx context.Context, worker string) error {
	route, err := l.source.Route(ctx, worker)
	if err != nil {
		return fmt.Errorf("fieldwork: load route for %s: %w", worker, err)
	}

	tasks := make([]models.Task, len(route))
	versions := make([]int64, len(route))
	for i, c := range route {
		tasks[i] = models.NewTask(c)
		versions[i] = c.Version
	}

	route = append([]models.Client(nil), route...)

	l.mu.Lock()
	l.worker = worker
	l.route = route
	l.tasks = tasks
	l.versions = versions
	l.mu.Unlock()
	return nil
}

// Worker returns the worker whose route is loaded.
func (l *Ledger) Worker() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.worker
}

// Route returns the client sequence in route order.
func (l *Ledger) Route() []models.Client {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Client, len(l.route))
	copy(out, l.route)
	return out
}

// Tasks returns deep copies of all tasks.
func (l *Ledger) Tasks() []models.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Task, len(l.tasks))
	for i, t := range l.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Task returns a copy of the task at index.
func (l *Ledger) Task(index int) (models.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.tasks) {
		return models.Task{}, fmt.Errorf("%w: %d", ErrTaskIndex, index)
	}
	return l.tasks[index].Clone(), nil
}

// Remaining sums actionsRemaining over the route.
func (l *Ledger) Remaining() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0
	for _, t := range l.tasks {
		total += t.ActionsRemaining
	}
	return total
}

// History returns the server-side photo log for the task's client.
func (l *Ledger) History(ctx context.Context, index int) ([]models.PhotoLog, error) {
	task, err := l.Task(index)
	if err != nil {
		return nil, err
	}
	logs, err := l.source.PhotoLogs(ctx, task.ClientID)
	if err != nil {
		return nil, fmt.Errorf("fieldwork: photo history for client %d: %w", task.ClientID, err)
	}
	return logs, nil
}

// ApplyClient refreshes the route record of a client from a server-confirmed
// copy, such as a client_updated or photo_logged event. Task progress is kept;
// copies older than the version already seen are ignored. It reports whether
// the ledger changed.
func (l *Ledger) ApplyClient(c models.Client) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for i := range l.route {
		if l.route[i].ID != c.ID || c.Version <= l.versions[i] {
			continue
		}
		l.route[i] = c
		l.versions[i] = c.Version
		changed = true
	}
	return changed
}

// refreshVersion re-reads the route and returns the current version of the
// task's client. ok is false when the client has left the route.
func (l *Ledger) refreshVersion(ctx context.Context, index, clientID int) (version int64, ok bool) {
	route, err := l.source.Route(ctx, l.Worker())
	if err != nil {
		return 0, false
	}
	for _, c := range route {
		if c.ID != clientID {
			continue
		}
		l.ApplyClient(c)

		l.mu.RLock()
		defer l.mu.RUnlock()
		if index < 0 || index >= len(l.tasks) || l.tasks[index].ClientID != clientID {
			return 0, false
		}
		return l.versions[index], true
	}
	return 0, false
}

// pending returns what a completion needs, or the precondition error.
func (l *Ledger) pending(index int) (clientID int, version int64, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.tasks) {
		return 0, 0, fmt.Errorf("%w: %d", ErrTaskIndex, index)
	}
	t := l.tasks[index]
	if t.ActionsRemaining <= 0 {
		return 0, 0, fmt.Errorf("%w: client %d", ErrNoActionsRemaining, t.ClientID)
	}
	return t.ClientID, l.versions[index], nil
}

// record appends a confirmed photo and decrements the remaining count. The
// task is re-checked under the write lock so concurrent completions can never
// take it below zero.
func (l *Ledger) record(index, clientID int, entry models.TaskPhoto, version int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.tasks) || l.tasks[index].ClientID != clientID {
		return ErrNoRoute
	}
	t := &l.tasks[index]
	if t.ActionsRemaining <= 0 {
		return fmt.Errorf("%w: client %d", ErrNoActionsRemaining, clientID)
	}
	t.PhotoLogs = append(t.PhotoLogs, entry)
	t.ActionsRemaining--
	if version > 0 {
		l.versions[index] = version
	}
	return nil
}

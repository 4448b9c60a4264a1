package fieldwork

import (
	"zoneroute/internal/dispatch"
	"zoneroute/internal/photo"
)

// Session is the worker dashboard's state container.
type Session struct {
	Ledger    *Ledger
	Completer *Completer
	Shift     *ShiftTimer
}

func NewSession(source RouteSource, sender dispatch.Sender, encoder *photo.Encoder) *Session {
	ledger := NewLedger(source)
	return &Session{
		Ledger:    ledger,
		Completer: NewCompleter(ledger, sender, encoder),
		Shift:     NewShiftTimer(nil),
	}
}

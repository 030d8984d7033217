package types

import "time"

// Event names used for statement notifications. Table statements are named
// "<table> Create", "<table> Update", "<table> Destroy" and "<table> Load".
const (
	EventSchema      = "SCHEMA"
	EventTransaction = "TRANSACTION"
)

// Event describes one SQL statement issued by a backend.
type Event struct {
	ID       string        // Unique per statement; Start and Finish share it.
	Name     string        // Statement category, e.g. "posts Create".
	SQL      string        // Statement text with ? placeholders.
	Binds    []any         // Bound values.
	Duration time.Duration // Set on Finish.
	Err      error         // Set on Finish when the statement failed.
}

// Subscriber receives statement notifications. Events arrive on the calling
// goroutine when the store operation that issued them returns, in statement
// order, with Start before Finish for each statement. The store is released
// by then, so a subscriber may read from it.
type Subscriber interface {
	Start(ev Event)
	Finish(ev Event)
}

// SubscriberFuncs adapts plain functions to Subscriber. Nil funcs are skipped.
type SubscriberFuncs struct {
	OnStart  func(Event)
	OnFinish func(Event)
}

// Start implements Subscriber.
func (s SubscriberFuncs) Start(ev Event) {
	if s.OnStart != nil {
		s.OnStart(ev)
	}
}

// Finish implements Subscriber.
func (s SubscriberFuncs) Finish(ev Event) {
	if s.OnFinish != nil {
		s.OnFinish(ev)
	}
}

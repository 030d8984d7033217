package sqlite

import (
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

type subscription struct {
	id  int
	sub types.Subscriber
}

// notifier fans statement events out to subscribers in registration order.
type notifier struct {
	mu   sync.Mutex
	next int
	subs []subscription
}

func (n *notifier) subscribe(sub types.Subscriber) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	id := n.next
	n.subs = append(n.subs, subscription{id: id, sub: sub})

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, s := range n.subs {
				if s.id == id {
					n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (n *notifier) snapshot() []types.Subscriber {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]types.Subscriber, len(n.subs))
	for i, s := range n.subs {
		out[i] = s.sub
	}
	return out
}

// op collects the statement events of one store operation. Subscribers are
// notified by end, once the operation has released the store lock and its
// connection, so a subscriber may read from the store.
type op struct {
	b      *Backend
	events []types.Event
}

// begin starts an operation. Callers defer end before taking any lock.
func (b *Backend) begin() *op {
	return &op{b: b}
}

// end delivers the collected events in statement order: for each statement
// every subscriber sees Start, then every subscriber sees Finish.
func (o *op) end() {
	if len(o.events) == 0 {
		return
	}
	subs := o.b.notifier.snapshot()
	for _, ev := range o.events {
		start := ev
		start.Duration = 0
		start.Err = nil
		for _, s := range subs {
			s.Start(start)
		}
		for _, s := range subs {
			s.Finish(ev)
		}
	}
	o.events = nil
}

// instrument runs fn as the statement described by name, query and binds.
// The statement is logged at debug level, its duration is recorded, and its
// event is queued for subscribers.
func (o *op) instrument(name, query string, binds []any, fn func() error) error {
	ev := types.Event{
		ID:    uuid.NewString(),
		Name:  name,
		SQL:   query,
		Binds: binds,
	}

	start := time.Now()
	err := fn()
	ev.Duration = time.Since(start)
	ev.Err = err
	o.events = append(o.events, ev)

	b := o.b
	b.metrics.observeStatement(name, ev.Duration)
	b.logger.Debug("sql",
		zap.String("name", name),
		zap.String("sql", query),
		zap.Any("binds", binds),
		zap.Duration("duration", ev.Duration),
		zap.Error(err))
	return err
}

// exec runs an instrumented statement on q.
func (o *op) exec(q querier, name, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := o.instrument(name, query, args, func() error {
		var err error
		res, err = q.Exec(query, args...)
		return err
	})
	return res, err
}

// query runs an instrumented query on q. The caller closes the rows.
func (o *op) query(q querier, name, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := o.instrument(name, query, args, func() error {
		var err error
		rows, err = q.Query(query, args...)
		return err
	})
	return rows, err
}

// transaction runs fn inside begin/commit, rolling back when fn fails.
func (o *op) transaction(fn func(tx *sql.Tx) error) error {
	var tx *sql.Tx
	err := o.instrument(types.EventTransaction, "begin transaction", nil, func() error {
		var err error
		tx, err = o.b.db.Begin()
		return err
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = o.instrument(types.EventTransaction, "rollback transaction", nil, tx.Rollback)
		return err
	}
	return o.instrument(types.EventTransaction, "commit transaction", nil, tx.Commit)
}

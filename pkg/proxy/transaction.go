package proxy

import (
	"context"
	"time"

	"github.com/acebase-go/acebase-core/pkg/acerr"
)

// Transaction is a scoped hold on local mutation draining (spec.md
// §4.8.4): mutations whose target falls within its scope stay queued
// until Commit or Rollback resolves it.
type Transaction struct {
	p        *Proxy
	target   []any
	status   string // "started" | "finished"
	finished bool
}

type txScope struct {
	target []any
	status string
}

// startTransaction awaits any in-flight sync if mutations are already
// pending in scope, rejects overlapping scopes, and registers the
// transaction.
func (p *Proxy) startTransaction(ctx context.Context, target []any) (*Transaction, error) {
	if err := p.guardDestroyed("Proxy.StartTransaction"); err != nil {
		return nil, err
	}

	p.mu.Lock()
	for _, tx := range p.transactions {
		if targetEqual(tx.target, target) || targetIsAncestor(tx.target, target) || targetIsAncestor(target, tx.target) {
			scope, other := renderTarget(target), renderTarget(tx.target)
			p.mu.Unlock()
			return nil, &acerr.TransactionConflictError{
				Base: acerr.Base{Op: "Proxy.StartTransaction"}, Scope: scope, OtherScope: other,
			}
		}
	}
	hasPending := false
	for _, m := range p.mutQueue {
		if targetSharesPrefix(target, m.target) {
			hasPending = true
			break
		}
	}
	p.mu.Unlock()

	if hasPending {
		p.awaitSync()
	}

	scope := &txScope{target: cloneTarget(target), status: "started"}
	p.mu.Lock()
	p.transactions = append(p.transactions, scope)
	p.mu.Unlock()

	return &Transaction{p: p, target: cloneTarget(target), status: "started"}, nil
}

// Mutations returns the subset of the pending mutation queue currently
// held back by this transaction's scope.
func (t *Transaction) Mutations() []MutationEvent {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	var out []MutationEvent
	for _, m := range t.p.mutQueue {
		if targetEqual(t.target, m.target) || targetIsAncestor(t.target, m.target) {
			out = append(out, MutationEvent{Target: m.target, Prev: m.previous, Val: getAt(t.p.cache, m.target)})
		}
	}
	return out
}

// HasMutations reports whether any mutation is currently held back.
func (t *Transaction) HasMutations() bool { return len(t.Mutations()) > 0 }

// Status returns "started" or "finished".
func (t *Transaction) Status() string { return t.status }

// Completed reports whether Commit or Rollback has already run.
func (t *Transaction) Completed() bool { return t.finished }

// Commit ends the transaction's hold, then schedules and awaits a
// sync so its mutations drain immediately.
func (t *Transaction) Commit() error {
	if t.finished {
		return &acerr.TransactionConflictError{Base: acerr.Base{Op: "Transaction.Commit"}, AlreadyDone: true}
	}
	t.finished = true
	t.status = "finished"
	t.p.removeTransaction(t.target)

	t.p.awaitSync()
	t.p.scheduleSync()
	// give the zero-delay tick a chance to be scheduled before waiting
	time.Sleep(time.Millisecond)
	t.p.awaitSync()
	return nil
}

// Rollback ends the transaction's hold and discards every mutation
// that was pending in its scope, restoring the cache to each
// mutation's pre-flag value in reverse-queue order.
func (t *Transaction) Rollback() error {
	if t.finished {
		return &acerr.TransactionConflictError{Base: acerr.Base{Op: "Transaction.Rollback"}, AlreadyDone: true}
	}
	t.finished = true
	t.status = "finished"
	t.p.removeTransaction(t.target)

	t.p.mu.Lock()
	var kept []*queuedMutation
	var inScope []*queuedMutation
	for _, m := range t.p.mutQueue {
		if targetEqual(t.target, m.target) || targetIsAncestor(t.target, m.target) {
			inScope = append(inScope, m)
		} else {
			kept = append(kept, m)
		}
	}
	t.p.mutQueue = kept
	for i := len(inScope) - 1; i >= 0; i-- {
		setAt(t.p.cache, inScope[i].target, inScope[i].previous)
	}
	t.p.mu.Unlock()
	return nil
}

func (p *Proxy) removeTransaction(target []any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.transactions[:0:0]
	for _, tx := range p.transactions {
		if !targetEqual(tx.target, target) {
			kept = append(kept, tx)
		}
	}
	p.transactions = kept
}

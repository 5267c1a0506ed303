package core

// Transaction is the explicit stand-in for the ambient, thread-local
// two-phase transaction the source registry enlists into (spec §5, design
// note in §9: "re-architect as an explicit Transaction value threaded
// through mutating calls"). A nil *Transaction passed to a mutating
// Registry method means "no ambient transaction" — the mutation applies
// immediately and cannot later be rolled back.
//
// A single Transaction may have more than one Registry enlisted in it
// (e.g. one core registry plus a staging registry); each enlists
// independently and is restored independently on Rollback.
type Transaction struct {
	enlisted map[*Registry]*registrySnapshot
	done     bool
}

// NewTransaction begins a new ambient transaction scope.
func NewTransaction() *Transaction {
	return &Transaction{enlisted: make(map[*Registry]*registrySnapshot)}
}

// Prepare answers "prepared" without flushing anything — the in-memory
// model has nothing to write ahead (spec §5.4).
func (tx *Transaction) Prepare() error { return nil }

// Commit drops every enlisted registry's snapshot and clears enlistment.
// Mutations already applied to the live registries are kept.
func (tx *Transaction) Commit() {
	for r := range tx.enlisted {
		r.clearEnlistment(tx)
	}
	tx.enlisted = make(map[*Registry]*registrySnapshot)
	tx.done = true
}

// Rollback restores every enlisted registry to its pre-transaction
// snapshot, field-by-field, so that external references to the Registry
// value remain valid (spec §5.6).
func (tx *Transaction) Rollback() {
	for r, snap := range tx.enlisted {
		r.restore(snap)
		r.clearEnlistment(tx)
	}
	tx.enlisted = make(map[*Registry]*registrySnapshot)
	tx.done = true
}

// InDoubt is treated identically to Rollback (spec §5.6).
func (tx *Transaction) InDoubt() { tx.Rollback() }

// enlistIfNeeded is called at the top of every mutating Registry
// operation. If tx is nil there is no ambient transaction and the
// mutation proceeds unprotected. If the registry is already enlisted in a
// different, still-open transaction, it returns a TransactionError.
func (r *Registry) enlistIfNeeded(tx *Transaction) error {
	if tx == nil {
		return nil
	}
	if r.currentTx == tx {
		return nil
	}
	if r.currentTx != nil {
		return &TransactionError{Reason: "nested transactions unsupported"}
	}
	snap := r.snapshot()
	tx.enlisted[r] = snap
	r.currentTx = tx
	return nil
}

// clearEnlistment drops r's enlistment in tx, if any.
func (r *Registry) clearEnlistment(tx *Transaction) {
	if r.currentTx == tx {
		r.currentTx = nil
	}
}

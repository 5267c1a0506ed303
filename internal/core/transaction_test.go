package core

import "testing"

func TestTransactionCommitKeepsMutation(t *testing.T) {
	r := NewRegistry()
	tx := NewTransaction()
	if err := r.AddAvailable(tx, CkanModule{Identifier: "A", Version: MustSemanticVersion("1.0.0")}); err != nil {
		t.Fatalf("AddAvailable failed: %v", err)
	}
	tx.Commit()

	if _, err := r.AvailableByIdentifier("A"); err != nil {
		t.Fatalf("expected A to remain after Commit: %v", err)
	}
}

func TestTransactionRollbackRestoresSnapshot(t *testing.T) {
	r := NewRegistry()
	seed := NewTransaction()
	_ = r.AddAvailable(seed, CkanModule{Identifier: "A", Version: MustSemanticVersion("1.0.0")})
	seed.Commit()

	tx := NewTransaction()
	if err := r.AddAvailable(tx, CkanModule{Identifier: "B", Version: MustSemanticVersion("1.0.0")}); err != nil {
		t.Fatalf("AddAvailable failed: %v", err)
	}
	if err := r.RemoveAvailable(tx, "A", MustSemanticVersion("1.0.0")); err != nil {
		t.Fatalf("RemoveAvailable failed: %v", err)
	}
	tx.Rollback()

	if _, err := r.AvailableByIdentifier("B"); err == nil {
		t.Error("expected B to be rolled back")
	}
	if _, err := r.AvailableByIdentifier("A"); err != nil {
		t.Errorf("expected A to survive rollback: %v", err)
	}
}

func TestTransactionRollbackOfAddAvailableForExistingIdentifier(t *testing.T) {
	r := NewRegistry()
	seed := NewTransaction()
	_ = r.AddAvailable(seed, CkanModule{
		Identifier: "A", Version: MustSemanticVersion("1.0.0"),
		Provides:     []string{"Virtual"},
		GameVersions: GameVersionInterval{Max: MustGameVersion("1.5.0")},
	})
	seed.Commit()

	criteria := NewGameVersionCriteria(MustGameVersion("1.2.0"))
	// Populate the cached sorter before the transaction under test, the
	// way an earlier query in the same session would.
	_ = r.CompatibleModules(criteria)

	tx := NewTransaction()
	// AddAvailable for an identifier that already exists mutates the
	// pre-existing *AvailableModule in place rather than replacing the
	// pointer; the pre-transaction snapshot must not see this.
	if err := r.AddAvailable(tx, CkanModule{
		Identifier: "A", Version: MustSemanticVersion("2.0.0"),
		Provides:     []string{"OtherVirtual"},
		GameVersions: GameVersionInterval{Max: AnyGameVersion()},
	}); err != nil {
		t.Fatalf("AddAvailable failed: %v", err)
	}
	tx.Rollback()

	all, err := r.AvailableByIdentifier("A")
	if err != nil || len(all) != 1 || all[0].Version.String() != "1.0.0" {
		t.Fatalf("AvailableByIdentifier(A) after rollback = (%+v, %v), want only 1.0.0", all, err)
	}

	providers := r.LatestAvailableWithProvides("Virtual", criteria, nil, nil)
	if len(providers) != 1 || providers[0].Version.String() != "1.0.0" {
		t.Errorf("LatestAvailableWithProvides(Virtual) after rollback = %+v", providers)
	}
	if providers := r.LatestAvailableWithProvides("OtherVirtual", criteria, nil, nil); len(providers) != 0 {
		t.Errorf("LatestAvailableWithProvides(OtherVirtual) after rollback = %+v, want none (added inside rolled-back tx)", providers)
	}

	compat := r.CompatibleModules(criteria)
	if got, ok := compat["A"]; !ok || got.Version.String() != "1.0.0" {
		t.Errorf("CompatibleModules(criteria)[A] after rollback = %+v, want version 1.0.0", got)
	}
}

func TestTransactionRejectsNestedDifferentTransaction(t *testing.T) {
	r := NewRegistry()
	tx1 := NewTransaction()
	tx2 := NewTransaction()

	if err := r.AddAvailable(tx1, CkanModule{Identifier: "A", Version: MustSemanticVersion("1.0.0")}); err != nil {
		t.Fatalf("AddAvailable under tx1 failed: %v", err)
	}
	err := r.AddAvailable(tx2, CkanModule{Identifier: "B", Version: MustSemanticVersion("1.0.0")})
	if err == nil {
		t.Fatal("expected a TransactionError enlisting in a second open transaction")
	}
	var txErr *TransactionError
	if !asTransactionError(err, &txErr) {
		t.Errorf("error = %v, want *TransactionError", err)
	}
	tx1.Rollback()
}

func asTransactionError(err error, target **TransactionError) bool {
	te, ok := err.(*TransactionError)
	if ok {
		*target = te
	}
	return ok
}

func TestTransactionNilMeansUnprotected(t *testing.T) {
	r := NewRegistry()
	if err := r.AddAvailable(nil, CkanModule{Identifier: "A", Version: MustSemanticVersion("1.0.0")}); err != nil {
		t.Fatalf("AddAvailable with nil tx failed: %v", err)
	}
	if _, err := r.AvailableByIdentifier("A"); err != nil {
		t.Fatalf("expected unprotected mutation to apply: %v", err)
	}
}

func TestInDoubtBehavesLikeRollback(t *testing.T) {
	r := NewRegistry()
	tx := NewTransaction()
	_ = r.AddAvailable(tx, CkanModule{Identifier: "A", Version: MustSemanticVersion("1.0.0")})
	tx.InDoubt()

	if _, err := r.AvailableByIdentifier("A"); err == nil {
		t.Error("expected InDoubt to roll back like Rollback")
	}
}

package storage

import "testing"

func TestAlertRecordResolved(t *testing.T) {
	record := AlertRecord{ID: 1}
	if record.Resolved() {
		t.Fatal("a record without an outcome must report unresolved")
	}

	happened := true
	record.GoalHappened = &happened
	if !record.Resolved() {
		t.Fatal("a record with an outcome must report resolved")
	}
}

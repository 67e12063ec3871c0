package testfixtures

import "testing"

func TestIDGeneratorProducesPaddedSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("desk")
	if gen.Last() != "" {
		t.Fatalf("expected no identifier before the first call")
	}

	first, second := gen.Next(), gen.Next()
	if first != "desk-001" || second != "desk-002" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Last() != "desk-002" {
		t.Fatalf("expected desk-002 as last, got %q", gen.Last())
	}

	issued := gen.Issued()
	issued[0] = "mutated"
	if gen.Issued()[0] != "desk-001" {
		t.Fatalf("Issued must return a copy")
	}
}

func TestIDGeneratorDefaultsPrefix(t *testing.T) {
	if got := NewIDGenerator("").NextFunc()(); got != "id-001" {
		t.Fatalf("expected id-001, got %q", got)
	}
	var gen *IDGenerator
	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("nil generator should yield empty ids, got %q", got)
	}
}

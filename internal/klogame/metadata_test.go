package klogame

import (
	"encoding/json"
	"testing"
)

func TestMetadataKeyOrder(t *testing.T) {
	in := []byte(`{"address":"Werner-Heisenberg-Allee 25","district":"Fröttmaning","capacity":75000,"roof":true}`)

	var m Metadata
	if err := json.Unmarshal(in, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	wantKeys := []string{"address", "district", "capacity", "roof"}
	if len(m) != len(wantKeys) {
		t.Fatalf("expected %d entries, got %d", len(wantKeys), len(m))
	}
	for i, k := range wantKeys {
		if m[i].Key != k {
			t.Errorf("entry %d: key = %q, want %q", i, m[i].Key, k)
		}
	}

	if m.Get("district") != "Fröttmaning" {
		t.Errorf("Get(district) = %q", m.Get("district"))
	}
	if m.Get("capacity") != "75000" {
		t.Errorf("Get(capacity) = %q, want raw number text", m.Get("capacity"))
	}
	if m.Get("missing") != "" {
		t.Errorf("Get(missing) = %q, want empty", m.Get("missing"))
	}

	// Marshalling keeps the original order.
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"address":"Werner-Heisenberg-Allee 25","district":"Fröttmaning","capacity":"75000","roof":"true"}`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}

func TestMetadataNullAndEmpty(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`null`), &m); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil metadata, got %v", m)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal nil: %v", err)
	}
	if string(out) != "{}" {
		t.Errorf("marshal nil = %s, want {}", out)
	}

	if err := json.Unmarshal([]byte(`{}`), &m); err != nil {
		t.Fatalf("unmarshal empty: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected no entries, got %v", m)
	}
}

func TestVisitTypeValid(t *testing.T) {
	if !VisitPee.Valid() || !VisitPoop.Valid() {
		t.Error("known types must be valid")
	}
	if VisitType("schwimmen").Valid() || VisitType("").Valid() {
		t.Error("unknown types must be invalid")
	}
}

func TestStatsApply(t *testing.T) {
	var s Stats
	s.Apply(VisitRecord{Type: VisitPee, Points: 5})
	s.Apply(VisitRecord{Type: VisitPoop, Points: 15})

	want := Stats{TotalPoints: 20, TotalVisits: 2, PeeCount: 1, PoopCount: 1, LocationsCount: 2}
	if s != want {
		t.Errorf("stats = %+v, want %+v", s, want)
	}
}

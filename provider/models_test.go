package provider

import (
	"testing"
	"time"
)

func TestBillingCycleDuration(t *testing.T) {
	tests := []struct {
		cycle BillingCycle
		want  time.Duration
	}{
		{CycleDay, 24 * time.Hour},
		{CycleMonth, 30 * 24 * time.Hour},
		{CycleYear, 365 * 24 * time.Hour},
		{BillingCycle("weekly"), 0},
	}
	for _, tt := range tests {
		if got := tt.cycle.Duration(); got != tt.want {
			t.Errorf("Duration(%q) = %v, want %v", tt.cycle, got, tt.want)
		}
	}
}

func TestBillingCycleValid(t *testing.T) {
	for _, c := range []BillingCycle{CycleDay, CycleMonth, CycleYear} {
		if !c.Valid() {
			t.Errorf("Valid(%q) = false", c)
		}
	}
	if BillingCycle("").Valid() || BillingCycle("weekly").Valid() {
		t.Error("Valid accepted unknown cycle")
	}
}

func TestLinkDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		link Link
		want bool
	}{
		{"due in past", Link{NextBillingAt: now.Add(-time.Hour)}, true},
		{"due exactly now", Link{NextBillingAt: now}, true},
		{"not yet due", Link{NextBillingAt: now.Add(time.Hour)}, false},
		{"paused", Link{Paused: true, NextBillingAt: now.Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.link.Due(now); got != tt.want {
				t.Errorf("Due = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinkIndex(t *testing.T) {
	p := &Provider{Links: []Link{
		{SubscriberID: 3},
		{SubscriberID: 1},
		{SubscriberID: 8},
	}}

	if got := p.LinkIndex(1); got != 1 {
		t.Errorf("LinkIndex(1) = %d, want 1", got)
	}
	if got := p.LinkIndex(5); got != -1 {
		t.Errorf("LinkIndex(5) = %d, want -1", got)
	}
	if !p.Linked(8) {
		t.Error("Linked(8) = false")
	}
	if p.Linked(99) {
		t.Error("Linked(99) = true")
	}
}

func TestClone(t *testing.T) {
	p := &Provider{
		ID:    7,
		Owner: "alice",
		Links: []Link{{SubscriberID: 1}, {SubscriberID: 2}},
	}

	cp := p.Clone()
	cp.Links[0].Paused = true
	cp.Links = append(cp.Links, Link{SubscriberID: 3})
	cp.Owner = "mallory"

	if p.Links[0].Paused {
		t.Error("mutating clone link leaked into original")
	}
	if len(p.Links) != 2 {
		t.Errorf("original link count changed: %d", len(p.Links))
	}
	if p.Owner != "alice" {
		t.Errorf("original owner changed: %q", p.Owner)
	}

	var nilP *Provider
	if nilP.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestHashKey(t *testing.T) {
	a := HashKey([]byte("key-a"), "alice")
	b := HashKey([]byte("key-b"), "alice")

	if a == b {
		t.Error("distinct keys produced the same hash")
	}
	if a == HashKey([]byte("key-a"), "bob") {
		t.Error("same key under different owners produced the same hash")
	}
	if a != HashKey([]byte("key-a"), "alice") {
		t.Error("HashKey is not deterministic")
	}
	if a != HashKey([]byte("key-a"), "Alice ") {
		t.Error("owner address not normalized before hashing")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint(HashKey([]byte("key-a"), "alice"))
	if len(fp) != 8 {
		t.Errorf("expected 8 hex chars, got %d (%q)", len(fp), fp)
	}
	if fp != Fingerprint(HashKey([]byte("key-a"), "alice")) {
		t.Error("Fingerprint is not deterministic")
	}
}

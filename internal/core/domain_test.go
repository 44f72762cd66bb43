package core

import (
	"errors"
	"testing"
	"time"
)

func TestPeriodAddMonths(t *testing.T) {
	cases := []struct {
		start Period
		n     int
		want  Period
	}{
		{Period{Month: 6, Year: 2025}, 0, Period{Month: 6, Year: 2025}},
		{Period{Month: 1, Year: 2025}, -1, Period{Month: 12, Year: 2024}},
		{Period{Month: 2, Year: 2025}, -5, Period{Month: 9, Year: 2024}},
		{Period{Month: 11, Year: 2025}, 3, Period{Month: 2, Year: 2026}},
		{Period{Month: 10, Year: 2025}, -7, Period{Month: 3, Year: 2025}},
	}
	for i, tc := range cases {
		got := tc.start.AddMonths(tc.n)
		if got != tc.want {
			t.Fatalf("case %d: got %+v, want %+v", i, got, tc.want)
		}
	}
}

func TestPeriodValidate(t *testing.T) {
	if err := (Period{Month: 13, Year: 2025}).Validate(); err == nil {
		t.Fatal("expected error for month 13")
	}
	if err := (Period{Month: 0, Year: 2025}).Validate(); err == nil {
		t.Fatal("expected error for month 0")
	}
	if err := (Period{Month: 6, Year: 2025}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestTaskCompletionInvariant(t *testing.T) {
	now := time.Now()
	task := Task{ID: NewID(), Title: "logo", CreatedAt: now}
	if err := task.Validate(); err != nil {
		t.Fatalf("incomplete task should validate: %v", err)
	}

	task.IsCompleted = true
	if err := task.Validate(); !errors.Is(err, ErrCompletionMark) {
		t.Fatalf("completed task without timestamp should fail, got %v", err)
	}

	task.CompletedAt = &now
	if err := task.Validate(); err != nil {
		t.Fatalf("completed task with timestamp should validate: %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Date(2025, 8, 14, 10, 30, 0, 0, time.UTC)
	state := NewState()
	var err error
	state, err = AddClient("Acme")(state)
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	state, err = AddTask(state.Clients[0].ID, "Landing page", Money{Cents: 10000}, now)(state)
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	state, err = ToggleTask(state.Clients[0].ID, state.Clients[0].Tasks[0].ID, now)(state)
	if err != nil {
		t.Fatalf("toggle task: %v", err)
	}
	state, err = SetGoal(Money{Cents: 50000}, Period{Month: 8, Year: 2025})(state)
	if err != nil {
		t.Fatalf("set goal: %v", err)
	}

	doc, err := EncodeState(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeState(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Currency != state.Currency {
		t.Fatalf("currency: got %q, want %q", got.Currency, state.Currency)
	}
	if len(got.Clients) != 1 || got.Clients[0].Name != "Acme" {
		t.Fatalf("clients did not round-trip: %+v", got.Clients)
	}
	gt := got.Clients[0].Tasks[0]
	st := state.Clients[0].Tasks[0]
	if gt.ID != st.ID || gt.Price != st.Price || !gt.IsCompleted {
		t.Fatalf("task did not round-trip: %+v", gt)
	}
	if gt.CompletedAt == nil || !gt.CompletedAt.Equal(*st.CompletedAt) {
		t.Fatalf("completed_at did not round-trip: %v", gt.CompletedAt)
	}
	if len(got.Goals) != 1 || got.Goals[0] != state.Goals[0] {
		t.Fatalf("goals did not round-trip: %+v", got.Goals)
	}
}

func TestDecodeStateSchemaCheck(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		ok   bool
	}{
		{"valid minimal", `{"clients":[],"goals":[]}`, true},
		{"missing clients", `{"goals":[]}`, false},
		{"missing goals", `{"clients":[]}`, false},
		{"clients not a collection", `{"clients":{},"goals":[]}`, false},
		{"goals not a collection", `{"clients":[],"goals":"x"}`, false},
		{"not json", `not json at all`, false},
		{"empty object", `{}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeState([]byte(tc.doc))
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("expected ErrMalformedDocument, got %v", err)
			}
		})
	}
}

func TestDecodeStateDefaultsCurrency(t *testing.T) {
	got, err := DecodeState([]byte(`{"clients":[],"goals":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Currency != DefaultCurrency {
		t.Fatalf("currency: got %q, want %q", got.Currency, DefaultCurrency)
	}
}

func TestCloneIsStructurallyIndependent(t *testing.T) {
	now := time.Now()
	state := NewState()
	state, _ = AddClient("Acme")(state)
	state, _ = AddTask(state.Clients[0].ID, "Design", Money{Cents: 5000}, now)(state)

	clone := state.Clone()
	clone.Clients[0].Name = "Changed"
	clone.Clients[0].Tasks[0].Title = "Changed"

	if state.Clients[0].Name != "Acme" {
		t.Fatal("clone mutation leaked into original client")
	}
	if state.Clients[0].Tasks[0].Title != "Design" {
		t.Fatal("clone mutation leaked into original task")
	}
}

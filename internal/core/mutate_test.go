package core

import (
	"errors"
	"testing"
	"time"
)

func seedState(t *testing.T) (AppState, string, string) {
	t.Helper()
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	state := NewState()
	var err error
	state, err = AddClient("Acme")(state)
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	clientID := state.Clients[0].ID
	state, err = AddTask(clientID, "Landing page", Money{Cents: 10000}, now)(state)
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	return state, clientID, state.Clients[0].Tasks[0].ID
}

func TestAddClientValidation(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := AddClient(name)(NewState()); !errors.Is(err, ErrEmptyName) {
			t.Fatalf("name %q: expected ErrEmptyName, got %v", name, err)
		}
	}

	state, err := AddClient("  Acme  ")(NewState())
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	c := state.Clients[0]
	if c.Name != "Acme" {
		t.Fatalf("name not trimmed: %q", c.Name)
	}
	if c.ID == "" {
		t.Fatal("client id not assigned")
	}
	found := false
	for _, p := range Palette {
		if c.Color == p {
			found = true
		}
	}
	if !found {
		t.Fatalf("color %q not from palette", c.Color)
	}
}

func TestAddClientDoesNotMutateInput(t *testing.T) {
	orig := NewState()
	next, err := AddClient("Acme")(orig)
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	if len(orig.Clients) != 0 {
		t.Fatal("input state was mutated")
	}
	if len(next.Clients) != 1 {
		t.Fatal("new state missing client")
	}
}

func TestToggleTaskParity(t *testing.T) {
	state, clientID, taskID := seedState(t)
	now := time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC)

	// After n toggles, completion equals the parity of n and the completion
	// timestamp is set exactly when the task is complete.
	for i := 1; i <= 5; i++ {
		var err error
		state, err = ToggleTask(clientID, taskID, now)(state)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		task := state.Clients[0].Tasks[0]
		wantCompleted := i%2 == 1
		if task.IsCompleted != wantCompleted {
			t.Fatalf("toggle %d: completed=%v, want %v", i, task.IsCompleted, wantCompleted)
		}
		if wantCompleted && (task.CompletedAt == nil || !task.CompletedAt.Equal(now)) {
			t.Fatalf("toggle %d: completed_at not stamped", i)
		}
		if !wantCompleted && task.CompletedAt != nil {
			t.Fatalf("toggle %d: completed_at not cleared", i)
		}
	}
}

func TestDeleteClientCascades(t *testing.T) {
	state, clientID, _ := seedState(t)
	state, err := DeleteClient(clientID)(state)
	if err != nil {
		t.Fatalf("delete client: %v", err)
	}
	if len(state.Clients) != 0 {
		t.Fatalf("client not removed: %+v", state.Clients)
	}
}

func TestDeleteTask(t *testing.T) {
	state, clientID, taskID := seedState(t)
	state, err := DeleteTask(clientID, taskID)(state)
	if err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if len(state.Clients[0].Tasks) != 0 {
		t.Fatalf("task not removed: %+v", state.Clients[0].Tasks)
	}

	if _, err := DeleteTask(clientID, "missing")(state); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := DeleteTask("missing", taskID)(state); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestAddTaskValidation(t *testing.T) {
	state, clientID, _ := seedState(t)
	now := time.Now()

	if _, err := AddTask(clientID, "  ", Money{Cents: 100}, now)(state); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := AddTask(clientID, "Audit", Money{Cents: -1}, now)(state); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := AddTask("missing", "Audit", Money{Cents: 100}, now)(state); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestSetGoalReplacesSamePeriod(t *testing.T) {
	period := Period{Month: 8, Year: 2025}
	state := NewState()
	var err error
	state, err = SetGoal(Money{Cents: 50000}, period)(state)
	if err != nil {
		t.Fatalf("set goal: %v", err)
	}
	state, err = SetGoal(Money{Cents: 75000}, period)(state)
	if err != nil {
		t.Fatalf("set goal again: %v", err)
	}

	if len(state.Goals) != 1 {
		t.Fatalf("expected exactly one goal for the period, got %d", len(state.Goals))
	}
	if state.Goals[0].Target.Cents != 75000 {
		t.Fatalf("latest target should win: %d", state.Goals[0].Target.Cents)
	}

	// A different period keeps its own goal.
	state, err = SetGoal(Money{Cents: 60000}, Period{Month: 9, Year: 2025})(state)
	if err != nil {
		t.Fatalf("set other goal: %v", err)
	}
	if len(state.Goals) != 2 {
		t.Fatalf("expected two goals, got %d", len(state.Goals))
	}
}

func TestSetGoalValidation(t *testing.T) {
	if _, err := SetGoal(Money{Cents: 0}, Period{Month: 8, Year: 2025})(NewState()); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero target, got %v", err)
	}
	if _, err := SetGoal(Money{Cents: 100}, Period{Month: 0, Year: 2025})(NewState()); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12.345", 1234, true},
		{"12.346", 1235, true},
		{"100", 10000, true},
		{"0", 0, true},
		{"0.5", 50, true},
		{"-5", 0, false},
		{"+5", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got (%d, %v), want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

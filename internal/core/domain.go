package core

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Palette holds the fixed set of visual tags assigned to clients at creation.
// The value only tells clients apart in a UI; it carries no other meaning.
var Palette = []string{"indigo", "violet", "emerald", "amber", "rose", "cyan"}

// DefaultCurrency is the display symbol used until the user picks another one.
const DefaultCurrency = "$"

var (
	ErrEmptyName      = errors.New("empty client name")
	ErrEmptyTitle     = errors.New("empty task title")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidPeriod  = errors.New("invalid period")
	ErrClientNotFound = errors.New("client not found")
	ErrTaskNotFound   = errors.New("task not found")
	ErrCompletionMark = errors.New("completed_at must be set exactly when is_completed is true")
)

type (
	// Task is one unit of billable work owned by a client.
	// CompletedAt is present if and only if IsCompleted is true.
	Task struct {
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		Price       Money      `json:"price_cents"`
		IsCompleted bool       `json:"is_completed"`
		CreatedAt   time.Time  `json:"created_at"`
		CompletedAt *time.Time `json:"completed_at,omitempty"`
	}

	// Client is a counterparty who commissions tasks. Tasks keep insertion
	// order; the client exclusively owns them, so deleting a client deletes
	// every task it holds.
	Client struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Tasks []Task `json:"tasks"`
	}

	// MonthlyGoal is a declared earnings target for one calendar month.
	// At most one goal exists per (month, year) pair.
	MonthlyGoal struct {
		Month  int   `json:"month"`
		Year   int   `json:"year"`
		Target Money `json:"target_cents"`
	}

	// Period identifies one calendar month.
	Period struct {
		Month int
		Year  int
	}

	// AppState is the root aggregate: the complete persisted application data.
	AppState struct {
		Clients  []Client      `json:"clients"`
		Goals    []MonthlyGoal `json:"goals"`
		Currency string        `json:"currency"`
	}
)

// NewState returns the empty state a fresh identity starts from.
func NewState() AppState {
	return AppState{
		Clients:  []Client{},
		Goals:    []MonthlyGoal{},
		Currency: DefaultCurrency,
	}
}

// NewID generates a collision-resistant random identifier. Uniqueness is only
// required within a single user's dataset.
func NewID() string {
	return uuid.NewString()
}

// RandomColor picks one palette tag.
func RandomColor() string {
	return Palette[rand.Intn(len(Palette))]
}

// PeriodOf returns the calendar month the given instant falls in.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// AddMonths shifts the period by n calendar months, carrying over year
// boundaries via time.Date normalization.
func (p Period) AddMonths(n int) Period {
	t := time.Date(p.Year, time.Month(p.Month+n), 1, 0, 0, 0, 0, time.UTC)
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// Contains reports whether the instant falls inside this calendar month,
// interpreted in the timestamp's own location.
func (p Period) Contains(t time.Time) bool {
	return int(t.Month()) == p.Month && t.Year() == p.Year
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod
	}
	if p.Year < 1000 || p.Year > 9999 {
		return ErrInvalidPeriod
	}
	return nil
}

// Before orders periods chronologically.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

func (t Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id missing")
	}
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if t.Price.Cents < 0 {
		return ErrInvalidAmount
	}
	if t.IsCompleted != (t.CompletedAt != nil) {
		return ErrCompletionMark
	}
	return nil
}

func (c Client) Validate() error {
	if c.ID == "" {
		return errors.New("client id missing")
	}
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	for _, t := range c.Tasks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (g MonthlyGoal) Validate() error {
	if err := (Period{Month: g.Month, Year: g.Year}).Validate(); err != nil {
		return err
	}
	if g.Target.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Period returns the goal's calendar month.
func (g MonthlyGoal) Period() Period {
	return Period{Month: g.Month, Year: g.Year}
}

func (s AppState) Validate() error {
	seenClients := make(map[string]struct{}, len(s.Clients))
	for _, c := range s.Clients {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, ok := seenClients[c.ID]; ok {
			return errors.New("duplicate client id: " + c.ID)
		}
		seenClients[c.ID] = struct{}{}
	}
	seenGoals := make(map[Period]struct{}, len(s.Goals))
	for _, g := range s.Goals {
		if err := g.Validate(); err != nil {
			return err
		}
		if _, ok := seenGoals[g.Period()]; ok {
			return errors.New("duplicate goal period")
		}
		seenGoals[g.Period()] = struct{}{}
	}
	return nil
}

// IsEmpty reports whether the state holds no user data. An empty remote
// record must not shadow local data during load.
func (s AppState) IsEmpty() bool {
	return len(s.Clients) == 0 && len(s.Goals) == 0
}

// Clone returns a structurally independent copy. Mutations operate on a clone
// so the previous AppState value is never modified in place.
func (s AppState) Clone() AppState {
	out := AppState{
		Clients:  make([]Client, len(s.Clients)),
		Goals:    make([]MonthlyGoal, len(s.Goals)),
		Currency: s.Currency,
	}
	copy(out.Goals, s.Goals)
	for i, c := range s.Clients {
		cc := c
		cc.Tasks = make([]Task, len(c.Tasks))
		copy(cc.Tasks, c.Tasks)
		for j, t := range cc.Tasks {
			if t.CompletedAt != nil {
				at := *t.CompletedAt
				cc.Tasks[j].CompletedAt = &at
			}
		}
		out.Clients[i] = cc
	}
	return out
}

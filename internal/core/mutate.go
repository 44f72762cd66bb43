package core

import (
	"strings"
	"time"
)

// Mutation produces a new AppState from the current one. Implementations
// never modify the input value; a failed precondition returns an error and
// leaves the state untouched.
type Mutation func(AppState) (AppState, error)

// AddClient appends a new client with an empty task list, a fresh id, and a
// random palette color. The name must be non-empty after trimming.
func AddClient(name string) Mutation {
	return func(s AppState) (AppState, error) {
		name = strings.TrimSpace(name)
		if name == "" {
			return AppState{}, ErrEmptyName
		}
		next := s.Clone()
		next.Clients = append(next.Clients, Client{
			ID:    NewID(),
			Name:  name,
			Color: RandomColor(),
			Tasks: []Task{},
		})
		return next, nil
	}
}

// DeleteClient removes the client and every task it owns.
func DeleteClient(clientID string) Mutation {
	return func(s AppState) (AppState, error) {
		next := s.Clone()
		for i, c := range next.Clients {
			if c.ID == clientID {
				next.Clients = append(next.Clients[:i], next.Clients[i+1:]...)
				return next, nil
			}
		}
		return AppState{}, ErrClientNotFound
	}
}

// AddTask appends an incomplete task to the client's task list.
func AddTask(clientID, title string, price Money, now time.Time) Mutation {
	return func(s AppState) (AppState, error) {
		title = strings.TrimSpace(title)
		if title == "" {
			return AppState{}, ErrEmptyTitle
		}
		if price.Cents < 0 {
			return AppState{}, ErrInvalidAmount
		}
		next := s.Clone()
		for i, c := range next.Clients {
			if c.ID == clientID {
				next.Clients[i].Tasks = append(next.Clients[i].Tasks, Task{
					ID:        NewID(),
					Title:     title,
					Price:     price,
					CreatedAt: now,
				})
				return next, nil
			}
		}
		return AppState{}, ErrClientNotFound
	}
}

// DeleteTask removes a task from its client's list.
func DeleteTask(clientID, taskID string) Mutation {
	return func(s AppState) (AppState, error) {
		next := s.Clone()
		for i, c := range next.Clients {
			if c.ID != clientID {
				continue
			}
			for j, t := range c.Tasks {
				if t.ID == taskID {
					next.Clients[i].Tasks = append(c.Tasks[:j], c.Tasks[j+1:]...)
					return next, nil
				}
			}
			return AppState{}, ErrTaskNotFound
		}
		return AppState{}, ErrClientNotFound
	}
}

// ToggleTask flips a task's completion flag. CompletedAt is stamped with now
// on the false-to-true transition and cleared on the way back, keeping the
// completion invariant.
func ToggleTask(clientID, taskID string, now time.Time) Mutation {
	return func(s AppState) (AppState, error) {
		next := s.Clone()
		for i, c := range next.Clients {
			if c.ID != clientID {
				continue
			}
			for j, t := range c.Tasks {
				if t.ID != taskID {
					continue
				}
				t.IsCompleted = !t.IsCompleted
				if t.IsCompleted {
					at := now
					t.CompletedAt = &at
				} else {
					t.CompletedAt = nil
				}
				next.Clients[i].Tasks[j] = t
				return next, nil
			}
			return AppState{}, ErrTaskNotFound
		}
		return AppState{}, ErrClientNotFound
	}
}

// SetGoal replaces any goal declared for the period with a new target. This
// is a full replace, not a merge, so at most one goal per period survives.
func SetGoal(target Money, period Period) Mutation {
	return func(s AppState) (AppState, error) {
		if target.Cents <= 0 {
			return AppState{}, ErrInvalidAmount
		}
		if err := period.Validate(); err != nil {
			return AppState{}, err
		}
		next := s.Clone()
		kept := next.Goals[:0]
		for _, g := range next.Goals {
			if g.Period() != period {
				kept = append(kept, g)
			}
		}
		next.Goals = append(kept, MonthlyGoal{
			Month:  period.Month,
			Year:   period.Year,
			Target: target,
		})
		return next, nil
	}
}

// SetCurrency changes the global display symbol.
func SetCurrency(symbol string) Mutation {
	return func(s AppState) (AppState, error) {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			return AppState{}, ErrInvalidAmount
		}
		next := s.Clone()
		next.Currency = symbol
		return next, nil
	}
}

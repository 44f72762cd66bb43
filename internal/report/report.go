// Package report derives financial aggregates from an AppState snapshot.
// Every function is pure: it takes the snapshot (and a reference instant
// where the calendar matters) and returns a value, recomputed on demand.
// Input sizes are tens to low hundreds of tasks, so nothing is maintained
// incrementally.
package report

import (
	"sort"
	"time"

	"haseela/internal/core"
)

type (
	// ClientEarnings pairs a client with its lifetime completed-task income.
	ClientEarnings struct {
		ClientID  string     `json:"client_id"`
		Name      string     `json:"name"`
		Color     string     `json:"color"`
		Earned    core.Money `json:"earned_cents"`
		TaskCount int        `json:"task_count"`
	}

	// Share is a distribution entry: a client's lifetime earnings and its
	// integer percentage of the lifetime total.
	Share struct {
		ClientID string     `json:"client_id"`
		Name     string     `json:"name"`
		Color    string     `json:"color"`
		Earned   core.Money `json:"earned_cents"`
		Percent  int        `json:"percent"`
	}

	// MonthEarnings is one point of the trailing series.
	MonthEarnings struct {
		Month  int        `json:"month"`
		Year   int        `json:"year"`
		Earned core.Money `json:"earned_cents"`
	}

	// HistoryEntry archives target versus actual for one declared goal.
	HistoryEntry struct {
		Month    int        `json:"month"`
		Year     int        `json:"year"`
		Target   core.Money `json:"target_cents"`
		Earned   core.Money `json:"earned_cents"`
		Achieved bool       `json:"achieved"`
		Progress int        `json:"progress"`
	}
)

// CurrentGoal returns the goal declared for the calendar month of now.
func CurrentGoal(s core.AppState, now time.Time) (core.MonthlyGoal, bool) {
	period := core.PeriodOf(now)
	for _, g := range s.Goals {
		if g.Period() == period {
			return g, true
		}
	}
	return core.MonthlyGoal{}, false
}

// MonthlyEarnings sums the price of every completed task whose completion
// timestamp falls in the given calendar month. Tasks completed in other
// months never count here, even if they were toggled retroactively.
func MonthlyEarnings(s core.AppState, month, year int) core.Money {
	period := core.Period{Month: month, Year: year}
	var total int64
	for _, c := range s.Clients {
		for _, t := range c.Tasks {
			if t.IsCompleted && t.CompletedAt != nil && period.Contains(*t.CompletedAt) {
				total += t.Price.Cents
			}
		}
	}
	return core.Money{Cents: total}
}

// GoalProgress returns round(earned/target*100) clamped to 100 for the
// period's goal. No goal, or a non-positive target, yields 0 — never a
// division error.
func GoalProgress(s core.AppState, month, year int) int {
	period := core.Period{Month: month, Year: year}
	for _, g := range s.Goals {
		if g.Period() == period {
			earned := MonthlyEarnings(s, month, year)
			return percentOf(earned.Cents, g.Target.Cents)
		}
	}
	return 0
}

// ClientEarningsRanking returns per-client lifetime earnings over completed
// tasks, descending. Ties keep encounter order.
func ClientEarningsRanking(s core.AppState) []ClientEarnings {
	out := make([]ClientEarnings, 0, len(s.Clients))
	for _, c := range s.Clients {
		var earned int64
		for _, t := range c.Tasks {
			if t.IsCompleted {
				earned += t.Price.Cents
			}
		}
		out = append(out, ClientEarnings{
			ClientID:  c.ID,
			Name:      c.Name,
			Color:     c.Color,
			Earned:    core.Money{Cents: earned},
			TaskCount: len(c.Tasks),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Earned.Cents > out[j].Earned.Cents
	})
	return out
}

// LifetimeTotal is the all-time income: every completed task across every
// client, regardless of completion month.
func LifetimeTotal(s core.AppState) core.Money {
	var total int64
	for _, c := range s.Clients {
		for _, t := range c.Tasks {
			if t.IsCompleted {
				total += t.Price.Cents
			}
		}
	}
	return core.Money{Cents: total}
}

// AverageMonthly divides the lifetime total by the number of months a goal
// was ever declared for. Zero goals yield 0.
func AverageMonthly(s core.AppState) core.Money {
	if len(s.Goals) == 0 {
		return core.Money{}
	}
	return core.Money{Cents: LifetimeTotal(s).Cents / int64(len(s.Goals))}
}

// TrailingMonths computes the earnings series for the n calendar months
// ending at and including the month of now, oldest first. Windows spanning a
// year boundary resolve via calendar arithmetic.
func TrailingMonths(s core.AppState, now time.Time, n int) []MonthEarnings {
	current := core.PeriodOf(now)
	out := make([]MonthEarnings, 0, n)
	for i := n - 1; i >= 0; i-- {
		p := current.AddMonths(-i)
		out = append(out, MonthEarnings{
			Month:  p.Month,
			Year:   p.Year,
			Earned: MonthlyEarnings(s, p.Month, p.Year),
		})
	}
	return out
}

// Distribution lists clients with nonzero lifetime earnings, descending, each
// with its integer percentage share of the lifetime total. A zero total
// yields an empty list rather than a division error.
func Distribution(s core.AppState) []Share {
	total := LifetimeTotal(s).Cents
	ranking := ClientEarningsRanking(s)
	out := make([]Share, 0, len(ranking))
	for _, ce := range ranking {
		if ce.Earned.Cents <= 0 {
			continue
		}
		out = append(out, Share{
			ClientID: ce.ClientID,
			Name:     ce.Name,
			Color:    ce.Color,
			Earned:   ce.Earned,
			Percent:  percentOfUnclamped(ce.Earned.Cents, total),
		})
	}
	return out
}

// TopClient returns the leading distribution entry, the datum behind the
// "primary income source" insight. ok is false when no client has earnings.
func TopClient(s core.AppState) (Share, bool) {
	dist := Distribution(s)
	if len(dist) == 0 {
		return Share{}, false
	}
	return dist[0], true
}

// History produces one target-versus-actual record per declared goal, most
// recent period first (year descending, then month descending).
func History(s core.AppState) []HistoryEntry {
	goals := make([]core.MonthlyGoal, len(s.Goals))
	copy(goals, s.Goals)
	sort.SliceStable(goals, func(i, j int) bool {
		return goals[j].Period().Before(goals[i].Period())
	})

	out := make([]HistoryEntry, 0, len(goals))
	for _, g := range goals {
		earned := MonthlyEarnings(s, g.Month, g.Year)
		out = append(out, HistoryEntry{
			Month:    g.Month,
			Year:     g.Year,
			Target:   g.Target,
			Earned:   earned,
			Achieved: earned.Cents >= g.Target.Cents,
			Progress: percentOf(earned.Cents, g.Target.Cents),
		})
	}
	return out
}

// TaskCounts returns the completed and incomplete task totals across all
// clients, for summary tiles.
func TaskCounts(s core.AppState) (completed, incomplete int) {
	for _, c := range s.Clients {
		for _, t := range c.Tasks {
			if t.IsCompleted {
				completed++
			} else {
				incomplete++
			}
		}
	}
	return completed, incomplete
}

// percentOf is round(part/whole*100) clamped to 100, with a zero whole
// mapping to 0.
func percentOf(part, whole int64) int {
	p := percentOfUnclamped(part, whole)
	if p > 100 {
		return 100
	}
	return p
}

func percentOfUnclamped(part, whole int64) int {
	if whole <= 0 || part <= 0 {
		return 0
	}
	return int((part*100 + whole/2) / whole)
}

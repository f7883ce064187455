// Package ratelimit applies per-identity sliding-window limits grouped by
// operation class.
package ratelimit

import (
	"sync"
	"time"
)

type Class string

const (
	ClassRead   Class = "reads"
	ClassWrite  Class = "writes"
	ClassVote   Class = "votes"
	ClassSearch Class = "search"
)

type Rule struct {
	Limit  int
	Window time.Duration
}

// DefaultRules covers interactive use of a single deployment.
var DefaultRules = map[Class]Rule{
	ClassRead:   {Limit: 600, Window: time.Minute},
	ClassWrite:  {Limit: 120, Window: time.Hour},
	ClassVote:   {Limit: 300, Window: time.Hour},
	ClassSearch: {Limit: 60, Window: time.Minute},
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter struct {
	mu    sync.Mutex
	rules map[Class]Rule
	hits  map[string][]time.Time
}

func New(rules map[Class]Rule) *Limiter {
	if rules == nil {
		rules = DefaultRules
	}
	return &Limiter{
		rules: rules,
		hits:  map[string][]time.Time{},
	}
}

// Allow records one hit for the caller in the given class, unless the
// window is already full. An unknown class is never limited.
func (l *Limiter) Allow(caller string, class Class, now time.Time) Decision {
	rule, ok := l.rules[class]
	if !ok || rule.Limit <= 0 {
		return Decision{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := caller + ":" + string(class)
	cutoff := now.Add(-rule.Window)
	history := l.hits[key]
	trimmed := history[:0]
	for _, ts := range history {
		if !ts.Before(cutoff) {
			trimmed = append(trimmed, ts)
		}
	}
	history = trimmed

	decision := Decision{
		Allowed: len(history) < rule.Limit,
		Limit:   rule.Limit,
	}
	if !decision.Allowed {
		decision.ResetAt = history[0].Add(rule.Window)
		l.hits[key] = history
		return decision
	}

	history = append(history, now)
	l.hits[key] = history
	decision.Remaining = rule.Limit - len(history)
	decision.ResetAt = history[0].Add(rule.Window)
	return decision
}

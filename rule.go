package ratelimiter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Rule is one fixed-window constraint: at most Limit cost units per Window.
//
// A Rule is immutable once built. Use NewRule or NewWeightedRule; the zero
// value is not a valid rule and is refused by Consume.
type Rule struct {
	window time.Duration
	limit  int64
	cost   int64
}

// NewRule returns a rule admitting limit calls of cost 1 per window.
func NewRule(window time.Duration, limit int64) (Rule, error) {
	return NewWeightedRule(window, limit, 1)
}

// NewWeightedRule returns a rule where every call consumes cost units.
//
// A cost larger than the limit is allowed; calls against such a rule are
// always rejected.
func NewWeightedRule(window time.Duration, limit, cost int64) (Rule, error) {
	r := Rule{window: window, limit: limit, cost: cost}
	if err := r.validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// MustRule is like NewWeightedRule but panics on an invalid rule.
// It is meant for package-level rule sets.
func MustRule(window time.Duration, limit, cost int64) Rule {
	r, err := NewWeightedRule(window, limit, cost)
	if err != nil {
		panic(err)
	}
	return r
}

// Window returns the length of one window slice.
func (r Rule) Window() time.Duration { return r.window }

// Limit returns the maximum cost admissible within one window slice.
func (r Rule) Limit() int64 { return r.limit }

// Cost returns the units one call consumes.
func (r Rule) Cost() int64 { return r.cost }

// String formats the rule the way ParseRule reads it.
func (r Rule) String() string {
	s := strconv.FormatInt(r.limit, 10) + "/" + formatWindow(r.window)
	if r.cost != 1 {
		s += "*" + strconv.FormatInt(r.cost, 10)
	}
	return s
}

func (r Rule) validate() error {
	switch {
	case r.window <= 0:
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidRule, r.window)
	case r.window%time.Millisecond != 0:
		return fmt.Errorf("%w: window must be a whole number of milliseconds, got %s", ErrInvalidRule, r.window)
	case r.limit <= 0:
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidRule, r.limit)
	case r.cost < 1:
		return fmt.Errorf("%w: cost must be at least 1, got %d", ErrInvalidRule, r.cost)
	}
	return nil
}

// ParseRule reads a rule written as "limit/window" with an optional "*cost"
// suffix, for example "10/10s", "600/1h" or "10000/1d*5".
//
// The window accepts time.ParseDuration units plus "d" for days.
func ParseRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	limitPart, rest, ok := strings.Cut(s, "/")
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q is not in limit/window form", ErrInvalidRule, s)
	}

	cost := int64(1)
	windowPart, costPart, hasCost := strings.Cut(rest, "*")
	if hasCost {
		c, err := strconv.ParseInt(strings.TrimSpace(costPart), 10, 64)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: bad cost in %q: %v", ErrInvalidRule, s, err)
		}
		cost = c
	}

	limit, err := strconv.ParseInt(strings.TrimSpace(limitPart), 10, 64)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: bad limit in %q: %v", ErrInvalidRule, s, err)
	}

	window, err := ParseWindow(windowPart)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: bad window in %q: %v", ErrInvalidRule, s, err)
	}

	return NewWeightedRule(window, limit, cost)
}

// ParseRules reads a comma separated list of rules, e.g. "10/10s,600/1h".
func ParseRules(s string) ([]Rule, error) {
	var rules []Rule
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := ParseRule(part)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: empty rule set", ErrInvalidRule)
	}
	return rules, nil
}

// ParseWindow is time.ParseDuration with an extra "d" (24h) unit.
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, err
		}
		if n > math.MaxInt64/int64(24*time.Hour) || n < math.MinInt64/int64(24*time.Hour) {
			return 0, fmt.Errorf("window %q overflows time.Duration", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func formatWindow(d time.Duration) string {
	const day = 24 * time.Hour
	if d >= day && d%day == 0 {
		return strconv.FormatInt(int64(d/day), 10) + "d"
	}
	return d.String()
}

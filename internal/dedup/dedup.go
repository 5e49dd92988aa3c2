// Package dedup decides which normalized candidates become new records.
//
// Candidates are classified one at a time in arrival order. Every accepted
// candidate updates the running key set and cap counters that later
// candidates are checked against, so the outcome depends on order.
package dedup

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

// Outcome is the classification of a single candidate.
type Outcome int

const (
	// Accepted candidates are appended to the store.
	Accepted Outcome = iota
	// OutOfBounds candidates have a price outside the category's bounds.
	OutOfBounds
	// Duplicate candidates share an identity key with a persisted or earlier accepted record.
	Duplicate
	// CapReached candidates exceed the category's cap.
	CapReached
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case OutOfBounds:
		return "out-of-bounds"
	case Duplicate:
		return "duplicate"
	case CapReached:
		return "cap-reached"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision pairs a candidate with its outcome.
type Decision struct {
	Record  models.PriceRecord
	Outcome Outcome
}

// Counts tallies outcomes.
type Counts struct {
	Accepted    int
	Duplicate   int
	OutOfBounds int
	CapReached  int
}

func (c *Counts) add(o Outcome) {
	switch o {
	case Accepted:
		c.Accepted++
	case OutOfBounds:
		c.OutOfBounds++
	case Duplicate:
		c.Duplicate++
	case CapReached:
		c.CapReached++
	}
}

// Result is the output of Classify.
type Result struct {
	// Accepted holds the accepted records in arrival order.
	Accepted []models.PriceRecord
	// Decisions holds one entry per candidate in arrival order.
	Decisions []Decision
	Counts    Counts
}

// Key is the identity key of a record.
type Key string

// KeyOf returns the identity key of r: station lowercased and trimmed, price
// rounded to three decimals, observed date, and fuel category lowercased.
func KeyOf(r models.PriceRecord) Key {
	return Key(fmt.Sprintf("%s|%.3f|%s|%s",
		strings.ToLower(strings.TrimSpace(r.Station)),
		r.Price,
		r.ObservedDate.Format(models.DateLayout),
		strings.ToLower(strings.TrimSpace(string(r.FuelCategory))),
	))
}

type categoryDate struct {
	category models.FuelCategory
	date     string
}

func categoryDateOf(r models.PriceRecord) categoryDate {
	return categoryDate{category: r.FuelCategory, date: r.ObservedDate.Format(models.DateLayout)}
}

// Engine classifies candidates against a policy.
type Engine struct {
	policy Policy
	logger zerolog.Logger
}

// New creates a new Engine.
func New(policy Policy, logger zerolog.Logger) *Engine {
	if policy.CapScope == "" {
		policy.CapScope = CapScopeCategory
	}
	return &Engine{
		policy: policy,
		logger: logger.With().Str("component", "dedup").Logger(),
	}
}

// Classify decides the outcome of every candidate given the persisted records.
//
// Checks run in a fixed order: bounds, then identity, then cap. The cap count
// for a candidate is the number of persisted records with its category and
// observed date plus the records accepted in this call, counted per category
// or per category and date depending on the policy's CapScope.
func (e *Engine) Classify(persisted, candidates []models.PriceRecord) Result {
	seen := make(map[Key]struct{}, len(persisted)+len(candidates))
	persistedCounts := make(map[categoryDate]int)
	for _, r := range persisted {
		seen[KeyOf(r)] = struct{}{}
		persistedCounts[categoryDateOf(r)]++
	}

	runByCategory := make(map[models.FuelCategory]int)
	runByCategoryDate := make(map[categoryDate]int)

	result := Result{Decisions: make([]Decision, 0, len(candidates))}
	for _, c := range candidates {
		outcome := e.classify(c, seen, persistedCounts, runByCategory, runByCategoryDate)
		if outcome == Accepted {
			seen[KeyOf(c)] = struct{}{}
			runByCategory[c.FuelCategory]++
			runByCategoryDate[categoryDateOf(c)]++
			result.Accepted = append(result.Accepted, c)
		}

		result.Decisions = append(result.Decisions, Decision{Record: c, Outcome: outcome})
		result.Counts.add(outcome)

		e.logger.Debug().
			Str("station", c.Station).
			Float64("price", c.Price).
			Str("date", c.ObservedDate.Format(models.DateLayout)).
			Str("fuel", string(c.FuelCategory)).
			Stringer("outcome", outcome).
			Msg("classified candidate")
	}

	return result
}

func (e *Engine) classify(
	c models.PriceRecord,
	seen map[Key]struct{},
	persistedCounts map[categoryDate]int,
	runByCategory map[models.FuelCategory]int,
	runByCategoryDate map[categoryDate]int,
) Outcome {
	if !e.policy.BoundsFor(c.FuelCategory).Contains(c.Price) {
		return OutOfBounds
	}

	if _, ok := seen[KeyOf(c)]; ok {
		return Duplicate
	}

	limit, ok := e.policy.Caps[c.FuelCategory]
	if !ok {
		return Accepted
	}
	cd := categoryDateOf(c)
	existing := persistedCounts[cd]
	if e.policy.CapScope == CapScopeCategoryDate {
		existing += runByCategoryDate[cd]
	} else {
		existing += runByCategory[c.FuelCategory]
	}
	if existing >= limit {
		return CapReached
	}
	return Accepted
}

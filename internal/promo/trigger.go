// Package promo implements the promotion rule core: eligibility triggers,
// benefit strategies, scope resolution, and the evaluation engine that turns
// a promotion catalog plus an order snapshot into automatic discounts.
//
// Everything in this package is pure: no I/O, no shared state, one clock
// reading per evaluation pass.
package promo

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/order"
)

// TriggerKind tags the closed set of trigger variants.
type TriggerKind string

const (
	TriggerTemporal        TriggerKind = "TEMPORAL"
	TriggerRequiredContent TriggerKind = "REQUIRED_CONTENT"
	TriggerMinimumAmount   TriggerKind = "MINIMUM_AMOUNT"
)

// ErrInvalidTrigger is returned for malformed trigger parameters.
var ErrInvalidTrigger = errors.New("invalid trigger configuration")

// EvalContext carries the single clock reading and order snapshot shared by
// every trigger evaluation within one repricing pass.
type EvalContext struct {
	Now      time.Time
	Snapshot order.Snapshot
}

// Trigger is one eligibility condition. The set of implementations is closed;
// the sealed marker keeps external packages from adding variants the engine
// would not know how to persist or evaluate.
type Trigger interface {
	Kind() TriggerKind
	Satisfied(ctx EvalContext) bool
	sealedTrigger()
}

// TimeOfDay is a wall-clock boundary for temporal windows.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Minutes returns the offset from midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TemporalTrigger restricts a promotion to a date range, a weekday set,
// and/or a time-of-day window, all evaluated against the injected clock
// reading in the operating timezone.
//
// Date bounds are inclusive and each may be nil (unbounded). The time window
// is half-open [From, Until) and wraps midnight when Until < From, so
// 22:00-02:00 covers late evening into the next day.
type TemporalTrigger struct {
	DateFrom    *time.Time          `json:"date_from,omitempty"`
	DateUntil   *time.Time          `json:"date_until,omitempty"`
	Weekdays    []time.Weekday      `json:"weekdays,omitempty"`
	WindowFrom  *TimeOfDay          `json:"window_from,omitempty"`
	WindowUntil *TimeOfDay          `json:"window_until,omitempty"`
}

// NewTemporalTrigger validates bounds: dates ordered when both set, window
// bounds paired and distinct.
func NewTemporalTrigger(t TemporalTrigger) (TemporalTrigger, error) {
	if t.DateFrom != nil && t.DateUntil != nil && dateOf(*t.DateFrom).After(dateOf(*t.DateUntil)) {
		return TemporalTrigger{}, fmt.Errorf("%w: date_from after date_until", ErrInvalidTrigger)
	}
	if (t.WindowFrom == nil) != (t.WindowUntil == nil) {
		return TemporalTrigger{}, fmt.Errorf("%w: time window requires both bounds", ErrInvalidTrigger)
	}
	if t.WindowFrom != nil {
		if !t.WindowFrom.valid() || !t.WindowUntil.valid() {
			return TemporalTrigger{}, fmt.Errorf("%w: time window bounds out of range", ErrInvalidTrigger)
		}
		if t.WindowFrom.Minutes() == t.WindowUntil.Minutes() {
			return TemporalTrigger{}, fmt.Errorf("%w: empty time window", ErrInvalidTrigger)
		}
	}
	for _, wd := range t.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return TemporalTrigger{}, fmt.Errorf("%w: weekday %d out of range", ErrInvalidTrigger, wd)
		}
	}
	return t, nil
}

// Kind implements Trigger.
func (t TemporalTrigger) Kind() TriggerKind { return TriggerTemporal }

func (t TemporalTrigger) sealedTrigger() {}

// Satisfied implements Trigger.
func (t TemporalTrigger) Satisfied(ctx EvalContext) bool {
	day := dateOf(ctx.Now)
	if t.DateFrom != nil && day.Before(dateOf(*t.DateFrom)) {
		return false
	}
	if t.DateUntil != nil && day.After(dateOf(*t.DateUntil)) {
		return false
	}
	if len(t.Weekdays) > 0 {
		found := false
		for _, wd := range t.Weekdays {
			if ctx.Now.Weekday() == wd {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if t.WindowFrom != nil && t.WindowUntil != nil {
		now := ctx.Now.Hour()*60 + ctx.Now.Minute()
		from := t.WindowFrom.Minutes()
		until := t.WindowUntil.Minutes()
		if from < until {
			if now < from || now >= until {
				return false
			}
		} else {
			// Wraps midnight: satisfied late evening or early morning.
			if now < from && now >= until {
				return false
			}
		}
	}
	return true
}

// dateOf reduces an instant to its calendar date in the instant's own
// location, pinned to UTC so bounds and clock readings compare as dates even
// when they arrive in different zones.
func dateOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RequiredContentTrigger requires every listed product to be present in the
// order with at least one unit. Quantities are checked per product, never
// summed across products.
type RequiredContentTrigger struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// NewRequiredContentTrigger validates the product list is non-empty.
func NewRequiredContentTrigger(productIDs []uuid.UUID) (RequiredContentTrigger, error) {
	if len(productIDs) == 0 {
		return RequiredContentTrigger{}, fmt.Errorf("%w: required content needs at least one product", ErrInvalidTrigger)
	}
	for _, id := range productIDs {
		if id == uuid.Nil {
			return RequiredContentTrigger{}, fmt.Errorf("%w: nil product reference", ErrInvalidTrigger)
		}
	}
	return RequiredContentTrigger{ProductIDs: productIDs}, nil
}

// Kind implements Trigger.
func (t RequiredContentTrigger) Kind() TriggerKind { return TriggerRequiredContent }

func (t RequiredContentTrigger) sealedTrigger() {}

// Satisfied implements Trigger.
func (t RequiredContentTrigger) Satisfied(ctx EvalContext) bool {
	for _, id := range t.ProductIDs {
		if ctx.Snapshot.QuantityOf(id) < 1 {
			return false
		}
	}
	return true
}

// MinimumAmountTrigger requires the order's raw pre-discount item subtotal to
// reach a threshold. The subtotal is always recomputed from item truth and
// never sees amounts already reduced by other promotions in the same pass;
// extras are excluded so add-ons cannot flip eligibility.
type MinimumAmountTrigger struct {
	Threshold money.Money `json:"threshold"`
}

// NewMinimumAmountTrigger validates the threshold is positive.
func NewMinimumAmountTrigger(threshold money.Money) (MinimumAmountTrigger, error) {
	if threshold.IsNegative() || threshold.IsZero() {
		return MinimumAmountTrigger{}, fmt.Errorf("%w: threshold must be positive", ErrInvalidTrigger)
	}
	return MinimumAmountTrigger{Threshold: threshold}, nil
}

// Kind implements Trigger.
func (t MinimumAmountTrigger) Kind() TriggerKind { return TriggerMinimumAmount }

func (t MinimumAmountTrigger) sealedTrigger() {}

// Satisfied implements Trigger.
func (t MinimumAmountTrigger) Satisfied(ctx EvalContext) bool {
	return ctx.Snapshot.ItemsSubtotal().Cmp(t.Threshold) >= 0
}

package calc

import (
	"encoding/json"
	"errors"
	"math"
)

// Conditions under which a ratio has no meaningful value. They arise from
// incomplete or unusual input and are reported, not raised.
var (
	ErrNoLoan             = errors.New("no loan required: debt service coverage is not applicable")
	ErrBreakEvenUndefined = errors.New("unit price must exceed variable cost per unit to compute break-even")
	ErrZeroProjectCost    = errors.New("total project cost is zero: return on investment is undefined")
	ErrNoDebtService      = errors.New("no debt service due in this year")
	ErrNotFinite          = errors.New("calculation produced a non-finite value")
)

// UndefinedReason tags why a Metric has no value
type UndefinedReason string

const (
	ReasonNoLoan            UndefinedReason = "NO_LOAN"
	ReasonBelowVariableCost UndefinedReason = "UNIT_PRICE_BELOW_VARIABLE_COST"
	ReasonZeroProjectCost   UndefinedReason = "ZERO_PROJECT_COST"
	ReasonNoDebtService     UndefinedReason = "NO_DEBT_SERVICE"
	ReasonNotFinite         UndefinedReason = "NOT_FINITE"
)

var reasonErrors = map[UndefinedReason]error{
	ReasonNoLoan:            ErrNoLoan,
	ReasonBelowVariableCost: ErrBreakEvenUndefined,
	ReasonZeroProjectCost:   ErrZeroProjectCost,
	ReasonNoDebtService:     ErrNoDebtService,
	ReasonNotFinite:         ErrNotFinite,
}

// Metric is a ratio that is either a finite number or undefined with a reason.
// NaN and Inf never reach a Metric's Value.
type Metric struct {
	Value   float64
	Defined bool
	Reason  UndefinedReason
}

// Defined wraps a finite value rounded to 2 decimals
func Defined(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined(ReasonNotFinite)
	}
	return Metric{Value: Round2(v), Defined: true}
}

// Undefined builds a metric with no value
func Undefined(reason UndefinedReason) Metric {
	return Metric{Reason: reason}
}

// Err returns the sentinel error for an undefined metric, nil otherwise
func (m Metric) Err() error {
	if m.Defined {
		return nil
	}
	if err, ok := reasonErrors[m.Reason]; ok {
		return err
	}
	return ErrNotFinite
}

// Message is the user-facing explanation for an undefined metric
func (m Metric) Message() string {
	if err := m.Err(); err != nil {
		return err.Error()
	}
	return ""
}

type metricJSON struct {
	Value   *float64        `json:"value"`
	Reason  UndefinedReason `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
}

// MarshalJSON renders {"value": 1.23} or {"value": null, "reason": ..., "message": ...}
func (m Metric) MarshalJSON() ([]byte, error) {
	if m.Defined {
		v := m.Value
		return json.Marshal(metricJSON{Value: &v})
	}
	return json.Marshal(metricJSON{Reason: m.Reason, Message: m.Message()})
}

// UnmarshalJSON accepts the MarshalJSON form
func (m *Metric) UnmarshalJSON(data []byte) error {
	var raw metricJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Value != nil {
		*m = Metric{Value: *raw.Value, Defined: true}
		return nil
	}
	reason := raw.Reason
	if reason == "" {
		reason = ReasonNotFinite
	}
	*m = Undefined(reason)
	return nil
}

package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Action is a trading decision
type Action string

const (
	ActionBuy     Action = "BUY"
	ActionSell    Action = "SELL"
	ActionNeutral Action = "NEUTRAL"
)

// ParseAction parses a case-insensitive action name
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionBuy:
		return ActionBuy, nil
	case ActionSell:
		return ActionSell, nil
	case ActionNeutral, "":
		return ActionNeutral, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// IsTrade reports whether the action is BUY or SELL
func (a Action) IsTrade() bool {
	return a == ActionBuy || a == ActionSell
}

// SignalRule maps a category name or event-name substring to an action.
// The signal becomes actionable on disclosure_date + DelayDays.
type SignalRule struct {
	Name      string `json:"name"`
	Action    Action `json:"action"`
	DelayDays int    `json:"delay_days"`
}

// Ready reports whether a disclosure dated on disclosed is actionable on asOf
func (r SignalRule) Ready(disclosed, asOf time.Time) bool {
	return !DateOf(disclosed).AddDate(0, 0, r.DelayDays).After(DateOf(asOf))
}

// RangeOp is the comparison a RangeTest performs
type RangeOp string

const (
	OpBetween RangeOp = "between"
	OpGTE     RangeOp = ">="
	OpLTE     RangeOp = "<="
	OpGT      RangeOp = ">"
	OpLT      RangeOp = "<"
	OpEQ      RangeOp = "=="
)

// EqualEpsilon is the tolerance used by OpEQ
const EqualEpsilon = 1e-6

// RangeTest is a closed set of numeric tests over an indicator score.
// between treats a nil bound as unbounded; the one-sided ops read Min (>=, >)
// or Max (<=, <); == compares against Min, falling back to Max.
type RangeTest struct {
	Op  RangeOp  `json:"operator"`
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Validate checks that the op is known and carries the bounds it reads
func (t RangeTest) Validate() error {
	switch t.Op {
	case OpBetween:
		if t.Min != nil && t.Max != nil && *t.Min > *t.Max {
			return fmt.Errorf("between: min %v > max %v", *t.Min, *t.Max)
		}
	case OpGTE, OpGT:
		if t.Min == nil {
			return fmt.Errorf("%s requires min", t.Op)
		}
	case OpLTE, OpLT:
		if t.Max == nil {
			return fmt.Errorf("%s requires max", t.Op)
		}
	case OpEQ:
		if t.Min == nil && t.Max == nil {
			return fmt.Errorf("== requires min or max")
		}
	default:
		return fmt.Errorf("unknown operator %q", t.Op)
	}
	return nil
}

// Match evaluates the test. Malformed tests never match.
func (t RangeTest) Match(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	switch t.Op {
	case OpBetween:
		if t.Min != nil && v < *t.Min {
			return false
		}
		if t.Max != nil && v > *t.Max {
			return false
		}
		return true
	case OpGTE:
		return t.Min != nil && v >= *t.Min
	case OpGT:
		return t.Min != nil && v > *t.Min
	case OpLTE:
		return t.Max != nil && v <= *t.Max
	case OpLT:
		return t.Max != nil && v < *t.Max
	case OpEQ:
		target := t.Min
		if target == nil {
			target = t.Max
		}
		return target != nil && math.Abs(v-*target) < EqualEpsilon
	default:
		return false
	}
}

// IndicatorCondition fires Action when the latest (ReportType, IndicatorName)
// record passes Test and the delay has elapsed
type IndicatorCondition struct {
	ReportType    string    `json:"report_type"`
	IndicatorName string    `json:"indicator_name"`
	Action        Action    `json:"action"`
	DelayDays     int       `json:"delay_days"`
	Test          RangeTest `json:"condition"`
}

// SignalTier identifies which resolution layer produced a decision
type SignalTier int

const (
	TierNone SignalTier = iota
	TierIndicator
	TierEvent
	TierDisclosure
)

// String returns the tier label used in logs and metrics
func (t SignalTier) String() string {
	switch t {
	case TierIndicator:
		return "indicator"
	case TierEvent:
		return "event"
	case TierDisclosure:
		return "disclosure"
	default:
		return "none"
	}
}

// Decision is the outcome of signal resolution for one symbol and date
type Decision struct {
	Action         Action     `json:"action"`
	Tier           SignalTier `json:"tier"`
	Reason         string     `json:"reason"`
	ReportType     string     `json:"report_type,omitempty"`
	IndicatorName  string     `json:"indicator_name,omitempty"`
	IndicatorScore *float64   `json:"indicator_score,omitempty"`
}

// Neutral is the no-signal decision
func Neutral() Decision {
	return Decision{Action: ActionNeutral, Tier: TierNone}
}

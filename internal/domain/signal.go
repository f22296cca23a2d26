package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action represents the direction of an emitted trade signal.
type Action int

const (
	ActionBuy Action = iota
	ActionSell
)

// String returns the string representation of the action.
func (a Action) String() string {
	if a == ActionSell {
		return "SELL"
	}
	return "BUY"
}

// MarshalJSON encodes the action as its string form.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes the string form back into an action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "BUY":
		*a = ActionBuy
	case "SELL":
		*a = ActionSell
	default:
		return fmt.Errorf("unknown action %q", s)
	}
	return nil
}

// Signal is the decision output of the strategy. Created once, handed to the
// notification collaborator and the signal store, never mutated.
type Signal struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"ts"`
	// SizeFraction is the Kelly-derived position size in [0,1].
	// Set only for BUY signals.
	SizeFraction float64 `json:"size_fraction,omitempty"`
	// Reason captures the triggering condition for diagnostics.
	Reason string `json:"reason"`
}

// String returns a human-readable representation for logs and notifications.
func (s *Signal) String() string {
	if s.Action == ActionBuy {
		return fmt.Sprintf("%s %s @ %.2f size=%.4f | %s", s.Action, s.Symbol, s.Price, s.SizeFraction, s.Reason)
	}
	return fmt.Sprintf("%s %s @ %.2f | %s", s.Action, s.Symbol, s.Price, s.Reason)
}

// SignalRecord bundles a persisted signal with its store index.
type SignalRecord struct {
	Index  uint64
	Signal Signal
}

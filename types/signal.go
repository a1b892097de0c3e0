package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SignalKind string

const (
	KindBuy     SignalKind = "BUY"
	KindSell    SignalKind = "SELL"
	KindHold    SignalKind = "HOLD"
	KindError   SignalKind = "ERROR"
	KindWarning SignalKind = "WARNING"
	KindInfo    SignalKind = "INFO"
)

// Side maps BUY/SELL kinds onto an order side.
func (k SignalKind) Side() (Side, bool) {
	switch k {
	case KindBuy:
		return Buy, true
	case KindSell:
		return Sell, true
	}
	return "", false
}

// Detail is the kind-specific payload of a Signal.
type Detail interface{ detail() }

// Directional is carried by BUY and SELL signals.
type Directional struct {
	Strength   float64
	Confidence float64
}

// Neutral is carried by HOLD signals.
type Neutral struct {
	Confidence float64
}

func (Directional) detail() {}
func (Neutral) detail()     {}

// Signal is an immutable trading or system notification. Use the
// constructors; derived signals are returned as copies.
type Signal struct {
	ID        string
	Kind      SignalKind
	Pair      string
	Source    string
	Message   string
	Timestamp time.Time
	Detail    Detail // nil for ERROR, WARNING and INFO
}

// NewBuy creates a BUY signal.
func NewBuy(pair, source, message string, strength, confidence float64, at time.Time) Signal {
	return newSignal(KindBuy, pair, source, message, at, Directional{Strength: strength, Confidence: confidence})
}

// NewSell creates a SELL signal.
func NewSell(pair, source, message string, strength, confidence float64, at time.Time) Signal {
	return newSignal(KindSell, pair, source, message, at, Directional{Strength: strength, Confidence: confidence})
}

// NewHold creates a HOLD signal.
func NewHold(pair, source, message string, confidence float64, at time.Time) Signal {
	return newSignal(KindHold, pair, source, message, at, Neutral{Confidence: confidence})
}

// NewAlert creates an ERROR, WARNING or INFO signal. Any other kind is
// coerced to INFO.
func NewAlert(kind SignalKind, pair, source, message string, at time.Time) Signal {
	switch kind {
	case KindError, KindWarning, KindInfo:
	default:
		kind = KindInfo
	}
	return newSignal(kind, pair, source, message, at, nil)
}

func newSignal(kind SignalKind, pair, source, message string, at time.Time, d Detail) Signal {
	return Signal{
		ID:        uuid.NewString(),
		Kind:      kind,
		Pair:      pair,
		Source:    source,
		Message:   message,
		Timestamp: at,
		Detail:    d,
	}
}

// Strength is defined for BUY and SELL only.
func (s Signal) Strength() (float64, bool) {
	if d, ok := s.Detail.(Directional); ok {
		return d.Strength, true
	}
	return 0, false
}

// Confidence is defined for BUY, SELL and HOLD.
func (s Signal) Confidence() (float64, bool) {
	switch d := s.Detail.(type) {
	case Directional:
		return d.Confidence, true
	case Neutral:
		return d.Confidence, true
	}
	return 0, false
}

// WithConsensus returns a copy re-labelled with the consensus kind and
// confidence, keeping the original strength. kind must be BUY or SELL.
func (s Signal) WithConsensus(kind SignalKind, confidence float64) Signal {
	strength, _ := s.Strength()
	out := s
	out.Kind = kind
	out.Detail = Directional{Strength: strength, Confidence: confidence}
	return out
}

// WithMessage returns a copy carrying msg.
func (s Signal) WithMessage(msg string) Signal {
	out := s
	out.Message = msg
	return out
}

type signalJSON struct {
	ID         string     `json:"id"`
	Kind       SignalKind `json:"type"`
	Pair       string     `json:"pair"`
	Source     string     `json:"indicator"`
	Message    string     `json:"reason"`
	Timestamp  time.Time  `json:"timestamp"`
	Strength   *float64   `json:"strength,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
}

func (s Signal) MarshalJSON() ([]byte, error) {
	out := signalJSON{
		ID:        s.ID,
		Kind:      s.Kind,
		Pair:      s.Pair,
		Source:    s.Source,
		Message:   s.Message,
		Timestamp: s.Timestamp,
	}
	if v, ok := s.Strength(); ok {
		out.Strength = &v
	}
	if v, ok := s.Confidence(); ok {
		out.Confidence = &v
	}
	return json.Marshal(out)
}

func (s *Signal) UnmarshalJSON(b []byte) error {
	var in signalJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = Signal{
		ID:        in.ID,
		Kind:      in.Kind,
		Pair:      in.Pair,
		Source:    in.Source,
		Message:   in.Message,
		Timestamp: in.Timestamp,
	}
	conf := 0.0
	if in.Confidence != nil {
		conf = *in.Confidence
	}
	switch in.Kind {
	case KindBuy, KindSell:
		str := 0.0
		if in.Strength != nil {
			str = *in.Strength
		}
		s.Detail = Directional{Strength: str, Confidence: conf}
	case KindHold:
		s.Detail = Neutral{Confidence: conf}
	}
	return nil
}

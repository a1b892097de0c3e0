package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSignalDetailByKind(t *testing.T) {
	now := time.Now()

	buy := NewBuy("ETH", "RSI", "RSI oversold at 25.0", 0.2, 0, now)
	if s, ok := buy.Strength(); !ok || s != 0.2 {
		t.Fatalf("buy strength = %v, %v", s, ok)
	}

	hold := NewHold("ETH", "Consensus", "Mixed signals - no clear direction", 0.1, now)
	if _, ok := hold.Strength(); ok {
		t.Fatal("hold must not carry a strength")
	}
	if c, ok := hold.Confidence(); !ok || c != 0.1 {
		t.Fatalf("hold confidence = %v, %v", c, ok)
	}

	alert := NewAlert(KindError, SystemPair, "Price Feed", "down", now)
	if _, ok := alert.Confidence(); ok {
		t.Fatal("alerts carry no confidence")
	}
	if NewAlert(KindBuy, "", "", "", now).Kind != KindInfo {
		t.Fatal("non-alert kind must be coerced to INFO")
	}
}

func TestWithConsensusCopies(t *testing.T) {
	orig := NewSell("BTC", "Bollinger Bands", "upper", 0.3, 0, time.Now())
	out := orig.WithConsensus(KindBuy, 0.75)

	if orig.Kind != KindSell {
		t.Fatal("original signal must not change")
	}
	if out.Kind != KindBuy {
		t.Fatalf("expected BUY, got %s", out.Kind)
	}
	if s, _ := out.Strength(); s != 0.3 {
		t.Fatalf("strength should be kept, got %v", s)
	}
	if c, _ := out.Confidence(); c != 0.75 {
		t.Fatalf("confidence = %v", c)
	}
}

func TestSignalJSONOmitsAbsentFields(t *testing.T) {
	b, err := json.Marshal(NewAlert(KindWarning, SystemPair, "Risk Management", "halt", time.Unix(0, 0).UTC()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["strength"]; ok {
		t.Fatal("warning must not serialise strength")
	}

	var back Signal
	b, _ = json.Marshal(NewHold("SOL", "Consensus", "x", 0.2, time.Unix(0, 0).UTC()))
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal signal: %v", err)
	}
	if c, ok := back.Confidence(); !ok || c != 0.2 {
		t.Fatalf("hold confidence lost: %v %v", c, ok)
	}
}

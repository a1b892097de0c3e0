package types

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Mode tells whether a trade was simulated or sent to a live venue.
type Mode string

const (
	Paper Mode = "Paper"
	Live  Mode = "Live"
)

// SystemPair labels signals that are not tied to an instrument.
const SystemPair = "SYSTEM"

// Instrument is a tradable asset. The set is fixed at startup.
type Instrument struct {
	ID     string `yaml:"id" json:"id" validate:"required"`
	Symbol string `yaml:"symbol" json:"symbol" validate:"required"`
	Name   string `yaml:"name" json:"name"`
	FeedID string `yaml:"feed_id" json:"feed_id"`
}

// Sample is one price observation. Volume is only meaningful when HasVolume
// is set.
type Sample struct {
	Timestamp time.Time
	Price     float64
	Volume    float64
	HasVolume bool
}

// Quote is a price update as delivered by a feed.
type Quote struct {
	InstrumentID string    `json:"instrument_id"`
	Price        float64   `json:"price"`
	Volume       *float64  `json:"volume,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

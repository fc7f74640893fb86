package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one tracked product-price subscription owned by a user.
// CurrentPrice always mirrors the most recently appended PriceSample;
// AddSample is the only way either changes.
type Observation struct {
	ID            int64
	Name          string
	URL           string
	OwnerEmail    string
	CurrentPrice  decimal.Decimal
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	History       []PriceSample
}

// PriceSample is one historical price reading. Samples are owned exclusively
// by their Observation and removed only when it is removed.
type PriceSample struct {
	ID        int64
	Price     decimal.Decimal
	CheckedAt time.Time
}

// AddSample appends a new price reading and moves CurrentPrice with it.
func (o *Observation) AddSample(price decimal.Decimal, checkedAt time.Time) {
	o.History = append(o.History, PriceSample{Price: price, CheckedAt: checkedAt})
	o.CurrentPrice = price
}

// Touch records a processing attempt, successful or not.
func (o *Observation) Touch(at time.Time) {
	t := at
	o.LastCheckedAt = &t
}

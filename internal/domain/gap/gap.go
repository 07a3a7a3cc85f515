// Package gap walks a merged cash event stream and finds maximal
// windows where the running balance falls below a minimum threshold.
package gap

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildflow/cashcast/internal/domain/model"
)

// Detector finds below-threshold balance windows.
type Detector struct{}

// New creates a Detector.
func New() *Detector {
	return &Detector{}
}

// Detect applies each event's signed amount to the running balance,
// starting from opening, and reports every maximal contiguous window
// where the balance sat below minimum. The event that closes a window
// (bringing the balance back to or above the threshold) is part of it.
// A stream that ends while still below threshold closes the window at
// the last event's date. Events are processed in date order; the input
// need not be pre-sorted.
func (d *Detector) Detect(_ context.Context, events []model.ProjectedCashEvent, opening, minimum decimal.Decimal) []model.CashGap {
	if len(events) == 0 {
		return nil
	}
	stream := make([]model.ProjectedCashEvent, len(events))
	copy(stream, events)
	sort.SliceStable(stream, func(i, j int) bool {
		if !stream[i].Date.Equal(stream[j].Date) {
			return stream[i].Date.Before(stream[j].Date)
		}
		return stream[i].SourceID < stream[j].SourceID
	})

	var gaps []model.CashGap
	var open *model.CashGap
	balance := opening
	for _, e := range stream {
		balance = balance.Add(e.Signed())
		if open == nil {
			if balance.LessThan(minimum) {
				open = &model.CashGap{
					Start:         e.Date,
					LowestBalance: balance,
					Events:        []model.ProjectedCashEvent{e},
				}
			}
			continue
		}

		open.Events = append(open.Events, e)
		if balance.LessThan(open.LowestBalance) {
			open.LowestBalance = balance
		}
		if !balance.LessThan(minimum) {
			gaps = append(gaps, finalize(*open, e.Date, minimum))
			open = nil
		}
	}
	if open != nil {
		last := open.Events[len(open.Events)-1]
		gaps = append(gaps, finalize(*open, last.Date, minimum))
	}
	return gaps
}

func finalize(g model.CashGap, end time.Time, minimum decimal.Decimal) model.CashGap {
	g.End = end
	g.GapAmount = minimum.Sub(g.LowestBalance)
	return g
}

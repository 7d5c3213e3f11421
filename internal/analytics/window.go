// Package analytics computes the dashboard aggregates: conversion funnels,
// drop-off points, retention cohorts, trending content, and NPS.
//
// Every function here is a pure function of the event rows it is handed:
// replaying the same stored events always yields identical output, so
// concurrent queries need no coordination.
package analytics

import (
	"math"
	"time"
)

// PlayEventRetentionDays is how long play events live before the store
// hard-deletes them. Trending windows must never exceed it.
const PlayEventRetentionDays = 30

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// WindowEndingNow returns the window covering the last days*24h up to now.
func WindowEndingNow(now time.Time, days int) Window {
	now = now.UTC()
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// ClampDays bounds a requested lookback to [1, max] and reports the
// effective value. Over-TTL play-event queries are clamped here rather than
// rejected; the caller surfaces the effective window to the dashboard.
func ClampDays(requested, max int) int {
	if requested < 1 {
		return 1
	}
	if requested > max {
		return max
	}
	return requested
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// pctOf returns round1(100*part/whole), guarding division by zero.
func pctOf(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(100 * float64(part) / float64(whole))
}

// Package timetable implements the weekly availability model and the
// aggregation of many members' grids into a combined per-hour view.
package timetable

import (
	"database/sql/driver"
	"fmt"
)

// HoursPerDay is the number of slots per day.
const HoursPerDay = 24

// DaysPerWeek is the number of days covered by one grid.
const DaysPerWeek = 7

// SlotsPerWeek is the number of hourly slots in a weekly grid.
const SlotsPerWeek = DaysPerWeek * HoursPerDay

// Grid is a weekly availability vector with one entry per hour. Entry i
// covers day i/24, hour i%24, with day 0 a fixed reference weekday shared
// by clients and the combined view. Each entry is 0 (unavailable) or
// 1 (available); partial-week grids are invalid.
type Grid []int

// Validate reports whether the grid satisfies the storage contract:
// exactly 168 entries, each 0 or 1.
func (g Grid) Validate() error {
	if len(g) != SlotsPerWeek {
		return fmt.Errorf("grid must have exactly %d slots, got %d", SlotsPerWeek, len(g))
	}
	for i, v := range g {
		if v != 0 && v != 1 {
			return fmt.Errorf("grid slot %d must be 0 or 1, got %d", i, v)
		}
	}
	return nil
}

// Value serializes the grid as a 168-character '0'/'1' string. The textual
// form keeps the column identical on postgres and the sqlite test driver.
func (g Grid) Value() (driver.Value, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, len(g))
	for i, v := range g {
		buf[i] = byte('0' + v)
	}
	return string(buf), nil
}

// Scan parses the stored textual form back into a grid.
func (g *Grid) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into timetable.Grid", src)
	}

	if len(s) != SlotsPerWeek {
		return fmt.Errorf("stored grid must be %d characters, got %d", SlotsPerWeek, len(s))
	}

	out := make(Grid, SlotsPerWeek)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			out[i] = 0
		case '1':
			out[i] = 1
		default:
			return fmt.Errorf("stored grid slot %d has invalid byte %q", i, s[i])
		}
	}
	*g = out
	return nil
}

// Package venue describes the fixed seating geometry of the halls that can
// host an event.  Seats are numbered 1..TotalSeats, left to right and front
// to back, so a seat's row is derived from its number and the venue's
// seats-per-row.
package venue

import (
	"errors"
	"fmt"
	"sort"
)

// Type identifies a venue in the catalog (e.g. "seminar-hall").
type Type string

const (
	SeminarHall Type = "seminar-hall"
	SolarShade  Type = "solar-shade"
)

// ErrUnknownVenue is returned when a venue type is not in the catalog.
var ErrUnknownVenue = errors.New("unknown venue")

// Config holds the seating geometry of a single venue.
//
// Fields:
//  Type                – catalog key.
//  Name                – display name.
//  TotalSeats          – highest valid seat number.
//  Rows                – number of seating rows.
//  SeatsPerRow         – seats in every row; the last row may be partial.
//  HasGenderSeparation – whether groups in this venue are split by gender.
type Config struct {
	Type                Type   `json:"venue_type"`
	Name                string `json:"name"`
	TotalSeats          int    `json:"total_seats"`
	Rows                int    `json:"rows"`
	SeatsPerRow         int    `json:"seats_per_row"`
	HasGenderSeparation bool   `json:"has_gender_separation"`
}

// Validate checks that the geometry can hold every seat.
func (c Config) Validate() error {
	if c.Type == "" {
		return errors.New("venue type is required")
	}
	if c.TotalSeats < 1 || c.Rows < 1 || c.SeatsPerRow < 1 {
		return fmt.Errorf("venue %s: seats, rows and seats per row must be positive", c.Type)
	}
	if c.Rows*c.SeatsPerRow < c.TotalSeats {
		return fmt.Errorf("venue %s: %d rows of %d cannot hold %d seats", c.Type, c.Rows, c.SeatsPerRow, c.TotalSeats)
	}
	return nil
}

// Contains reports whether seat is a valid seat number for the venue.
func (c Config) Contains(seat int) bool {
	return seat >= 1 && seat <= c.TotalSeats
}

// Row returns the 1-based row of seat, i.e. ceil(seat / SeatsPerRow).
func (c Config) Row(seat int) int {
	return (seat + c.SeatsPerRow - 1) / c.SeatsPerRow
}

// RowsFor maps every seat to its row.
func (c Config) RowsFor(seats []int) []int {
	rows := make([]int, len(seats))
	for i, s := range seats {
		rows[i] = c.Row(s)
	}
	return rows
}

// Catalog is an immutable set of venues keyed by type.
type Catalog struct {
	configs map[Type]Config
}

// NewCatalog validates configs and builds a catalog from them.  Duplicate
// types are rejected.
func NewCatalog(configs ...Config) (*Catalog, error) {
	m := make(map[Type]Config, len(configs))
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m[c.Type]; dup {
			return nil, fmt.Errorf("venue %s defined twice", c.Type)
		}
		m[c.Type] = c
	}
	return &Catalog{configs: m}, nil
}

// Default returns the catalog of the campus venues.
func Default() *Catalog {
	c, err := NewCatalog(
		Config{Type: SeminarHall, Name: "Seminar Hall", TotalSeats: 160, Rows: 10, SeatsPerRow: 16},
		Config{Type: SolarShade, Name: "Solar Shade", TotalSeats: 250, Rows: 15, SeatsPerRow: 17},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the geometry for t or ErrUnknownVenue.
func (c *Catalog) Get(t Type) (Config, error) {
	cfg, ok := c.configs[t]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownVenue, string(t))
	}
	return cfg, nil
}

// All lists the venues ordered by type.
func (c *Catalog) All() []Config {
	out := make([]Config, 0, len(c.configs))
	for _, cfg := range c.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

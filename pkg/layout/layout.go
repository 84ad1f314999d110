// Package layout defines the visualization modes and the pieces shared by the
// three layout engines.
//
// Each mode consumes the same canonical lineage graph but hands it to a
// different engine:
//
//   - [ModeRing] ("flower"): relatives on rings around a cluster anchor, see
//     package ring
//   - [ModePhylogeny]: discrete horizontal rows by level, see package phylo
//   - [ModeIncubator]: a radial, seed-jittered, grouped-spawn bloom, see
//     package incubator
//
// Layouts are pure values. Computing the same layout twice from the same
// graph yields bit-identical results.
package layout

import (
	"fmt"
	"strings"
)

// Mode selects a layout engine.
type Mode string

// Visualization modes.
const (
	ModeRing      Mode = "ring"
	ModePhylogeny Mode = "phylogeny"
	ModeIncubator Mode = "incubator"
)

// Modes lists the supported modes.
var Modes = []Mode{ModeRing, ModePhylogeny, ModeIncubator}

// DefaultMode is used when no mode is requested.
const DefaultMode = ModeIncubator

// ParseMode parses a mode name. "flower" is accepted as an alias for ring and
// "phylo" for phylogeny.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ring", "flower":
		return ModeRing, nil
	case "phylogeny", "phylo":
		return ModePhylogeny, nil
	case "incubator":
		return ModeIncubator, nil
	case "":
		return DefaultMode, nil
	}
	return "", fmt.Errorf("invalid mode: %q (must be one of: ring, phylogeny, incubator)", s)
}

// String returns the mode name.
func (m Mode) String() string { return string(m) }

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeRing, ModePhylogeny, ModeIncubator:
		return true
	}
	return false
}

// UnmarshalText parses a mode from config files and JSON, accepting the same
// aliases as ParseMode.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

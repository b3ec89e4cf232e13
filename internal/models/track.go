package models

import (
	"fmt"
	"strings"
)

// Interpolation selects how keys of an animated track are blended.
type Interpolation int

const (
	DontInterp Interpolation = iota
	Linear
	Hermite
	Bezier
)

var interpolationNames = map[Interpolation]string{
	DontInterp: "DontInterp",
	Linear:     "Linear",
	Hermite:    "Hermite",
	Bezier:     "Bezier",
}

// String returns the MDL keyword.
func (i Interpolation) String() string {
	if s, ok := interpolationNames[i]; ok {
		return s
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

// HasTangents reports whether keys carry in and out tangents.
func (i Interpolation) HasTangents() bool {
	return i == Hermite || i == Bezier
}

// ParseInterpolation maps an MDL keyword (case-insensitive) to its value.
func ParseInterpolation(s string) (Interpolation, error) {
	for k, v := range interpolationNames {
		if strings.EqualFold(v, s) {
			return k, nil
		}
	}
	return DontInterp, fmt.Errorf("unknown interpolation %q", s)
}

// Key is one keyframe of a track.
type Key[V any] struct {
	Time   int `json:"time"`
	Value  V   `json:"value"`
	InTan  V   `json:"in_tan"`
	OutTan V   `json:"out_tan"`
}

// Track is a node transform that is either a static value or a list of keys.
type Track[V any] struct {
	Static        V             `json:"static"`
	Interpolation Interpolation `json:"interpolation"`
	GlobalSeqID   int           `json:"global_seq_id"` // NoID when unbound
	Keys          []Key[V]      `json:"keys,omitempty"`
}

// Animated reports whether the track has keyframes.
func (t *Track[V]) Animated() bool {
	return len(t.Keys) > 0
}

// size returns the binary size of an animated track with values of
// valueSize bytes. Static tracks are not stored in the binary format.
func (t *Track[V]) size(valueSize int) int {
	if !t.Animated() {
		return 0
	}
	perKey := 4 + valueSize
	if t.Interpolation.HasTangents() {
		perKey += 2 * valueSize
	}
	return 16 + len(t.Keys)*perKey
}

package records

import (
	"fmt"
	"strings"
)

// Scale describes how a producer expresses skill levels. Every value is
// converted to the canonical 0-100 scale at the boundary.
type Scale string

const (
	ScalePercent   Scale = "percent"
	ScaleFivePoint Scale = "five-point"
)

// DefaultLevel is used for missing or non-numeric levels, on the canonical scale.
const DefaultLevel = 50.0

// Scales holds the configured scale for each record source.
type Scales struct {
	Candidate Scale `mapstructure:"candidate"`
	Job       Scale `mapstructure:"job"`
}

// DefaultScales matches the producers shipped with the parsing pipeline:
// resumes are rated 0-100, job postings 1-5.
func DefaultScales() Scales {
	return Scales{Candidate: ScalePercent, Job: ScaleFivePoint}
}

// Validate rejects unknown scale names.
func (s Scales) Validate() error {
	if _, err := ParseScale(string(s.Candidate)); err != nil {
		return fmt.Errorf("candidate scale: %w", err)
	}
	if _, err := ParseScale(string(s.Job)); err != nil {
		return fmt.Errorf("job scale: %w", err)
	}
	return nil
}

func ParseScale(name string) (Scale, error) {
	switch Scale(strings.ToLower(strings.TrimSpace(name))) {
	case ScalePercent:
		return ScalePercent, nil
	case ScaleFivePoint:
		return ScaleFivePoint, nil
	default:
		return "", fmt.Errorf("unknown skill level scale %q (want %q or %q)", name, ScalePercent, ScaleFivePoint)
	}
}

// Canonical converts v to the 0-100 scale and clamps it.
func (s Scale) Canonical(v float64) float64 {
	if s == ScaleFivePoint {
		v *= 20
	}
	return clamp(v, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package match holds the pure predicates behind browse and roulette:
// who may be shown to whom and whether two people are close enough.
package match

import "strings"

// Gender of a profile.
type Gender string

const (
	Male   Gender = "m"
	Female Gender = "f"
)

// Seek is the gender a profile wants to meet.
type Seek string

const (
	SeekMale   Seek = "m"
	SeekFemale Seek = "f"
	SeekBoth   Seek = "b"
)

// Status of a profile. Only active profiles are eligible.
type Status string

const (
	StatusNew     Status = "new"
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
	StatusShadow  Status = "shadow"
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Profile is the subset of a user needed for matching decisions.
type Profile struct {
	ID       uint64
	Gender   Gender
	Seek     Seek
	Status   Status
	HasPhoto bool
	Point    *Point
	City     string
}

// Accepts reports whether p wants to meet someone of gender g.
func (p Profile) Accepts(g Gender) bool {
	return p.Seek == SeekBoth || string(p.Seek) == string(g)
}

// Compatible is the gender/seek rule alone. It is symmetric.
func Compatible(a, b Profile) bool {
	return a.Accepts(b.Gender) && b.Accepts(a.Gender)
}

// Eligible reports whether candidate may be shown to or paired with viewer
// regardless of preferences: active, has a photo, not the viewer.
func Eligible(viewer, candidate Profile) bool {
	return candidate.Status == StatusActive &&
		candidate.HasPhoto &&
		candidate.ID != viewer.ID
}

// MutuallyCompatible is the full compatibility filter.
func MutuallyCompatible(viewer, candidate Profile) bool {
	return Eligible(viewer, candidate) && Compatible(viewer, candidate)
}

// NormalizeCity folds a free-text city for equality comparison.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// ParseSeek accepts the stored one-letter form as well as a few spellings
// the front end sends.
func ParseSeek(s string) (Seek, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return SeekMale, true
	case "f", "female":
		return SeekFemale, true
	case "b", "both", "any":
		return SeekBoth, true
	}
	return "", false
}

// ParseGender is ParseSeek for genders.
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return Male, true
	case "f", "female":
		return Female, true
	}
	return "", false
}

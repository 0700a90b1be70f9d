package browse

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/oggyb/meetbot/internal/match"
	"github.com/oggyb/meetbot/internal/repository"
)

// Selector picks one browse candidate for a viewer. It only reads.
type Selector struct {
	profiles *repository.ProfileRepository
	geo      match.GeoScope
	intn     func(n int) int
}

// NewSelector creates a Selector drawing uniformly at random.
func NewSelector(profiles *repository.ProfileRepository, geo match.GeoScope) *Selector {
	return &Selector{profiles: profiles, geo: geo, intn: rand.IntN}
}

// Pick returns a random eligible candidate, or nil when nobody is
// eligible. An unknown viewer yields repository.ErrNotFound.
func (s *Selector) Pick(ctx context.Context, viewerID uint64) (*Candidate, error) {
	viewer, err := s.profiles.Get(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("viewer %d: %w", viewerID, err)
	}

	eligible, err := s.eligible(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	c := eligible[s.intn(len(eligible))]
	return &c, nil
}

func (s *Selector) eligible(ctx context.Context, viewer *repository.Profile) ([]Candidate, error) {
	v := viewer.Match()
	filter := repository.BrowseFilter{Viewer: v, CityKey: viewer.CityKey}
	if box, ok := s.geo.BoundingBox(v); ok {
		filter.Box = &box
	}

	rows, err := s.profiles.BrowseCandidates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("pick for %d: %w", viewer.ID, err)
	}

	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		c := row.Match()
		if !match.MutuallyCompatible(v, c) {
			continue
		}
		ok, dist := s.geo.Colocated(v, c)
		if !ok {
			continue
		}
		out = append(out, newCandidate(row, dist))
	}
	return out, nil
}

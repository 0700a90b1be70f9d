// Package browse serves the "show next profile" flow: candidate selection
// over compatibility and geo filters with a per-viewer seen history that
// starts over once the pool is exhausted.
package browse

import (
	"context"
	"errors"

	"github.com/oggyb/meetbot/internal/app"
	"github.com/oggyb/meetbot/internal/match"
	"github.com/oggyb/meetbot/internal/metrics"
	"github.com/oggyb/meetbot/internal/repository"
	"github.com/oggyb/meetbot/internal/session"
)

// PhotoLimit is how many photos a card carousel shows.
const PhotoLimit = 5

// Result of PickNext. Candidate is nil when nobody is nearby.
type Result struct {
	Candidate *Candidate
	Reset     bool // history was cleared to find Candidate
}

// Service implements the browse operations on top of the repositories.
type Service struct {
	appCtx   *app.AppContext
	selector *Selector
	profiles *repository.ProfileRepository
	seen     *repository.SeenRepository
	photos   *repository.PhotoRepository
}

// NewService wires a browse Service from AppContext. The radius comes from
// config.Browse.RadiusKM.
func NewService(appCtx *app.AppContext) *Service {
	profiles := repository.NewProfileRepository(appCtx.DB)
	return &Service{
		appCtx:   appCtx,
		selector: NewSelector(profiles, match.NewGeoScope(appCtx.Config.Browse.RadiusKM)),
		profiles: profiles,
		seen:     repository.NewSeenRepository(appCtx.DB),
		photos:   repository.NewPhotoRepository(appCtx.DB),
	}
}

// PickNext returns the next candidate for the viewer.
//
// Behavior:
//   - Picks among eligible, not yet seen candidates.
//   - On an empty pool clears the viewer's history and picks once more.
//   - Still empty → Result with nil Candidate, not an error.
//   - Unknown viewer → empty Result; the history is left alone.
//   - Does not record the pick; see RecordSeen and ShowNext.
//
// Concurrent calls for one viewer may return the same candidate.
func (s *Service) PickNext(ctx context.Context, viewerID uint64) (Result, error) {
	s.appCtx.Logger.Debug("PickNext called", "viewer", viewerID)

	c, err := s.selector.Pick(ctx, viewerID)
	if errors.Is(err, repository.ErrNotFound) {
		// unknown viewer: nothing to show and no history to reset
		metrics.BrowsePicks.WithLabelValues("none").Inc()
		return Result{}, nil
	}
	if err != nil {
		s.appCtx.Logger.Error("pick failed", "viewer", viewerID, "err", err)
		return Result{}, err
	}
	if c != nil {
		metrics.BrowsePicks.WithLabelValues("found").Inc()
		return s.withPhotos(ctx, Result{Candidate: c})
	}

	removed, err := s.seen.Reset(ctx, viewerID)
	if err != nil {
		return Result{}, err
	}
	s.appCtx.Logger.Debug("seen history reset", "viewer", viewerID, "removed", removed)

	c, err = s.selector.Pick(ctx, viewerID)
	if err != nil {
		return Result{Reset: true}, err
	}
	if c == nil {
		metrics.BrowsePicks.WithLabelValues("none").Inc()
		return Result{Reset: true}, nil
	}
	metrics.BrowsePicks.WithLabelValues("found_after_reset").Inc()
	return s.withPhotos(ctx, Result{Candidate: c, Reset: true})
}

// ShowNext is PickNext followed by RecordSeen for the picked candidate,
// with the viewer's session moved to browsing.
func (s *Service) ShowNext(ctx context.Context, viewerID uint64) (Result, error) {
	res, err := s.PickNext(ctx, viewerID)
	if err != nil || res.Candidate == nil {
		return res, err
	}
	if err := s.RecordSeen(ctx, viewerID, res.Candidate.ID); err != nil {
		return Result{}, err
	}
	if err := s.appCtx.Sessions.Set(ctx, viewerID, session.StateBrowsing, 0); err != nil {
		s.appCtx.Logger.Warn("session update failed", "viewer", viewerID, "err", err)
	}
	return res, nil
}

// RecordSeen marks candidateID as shown to viewerID. Idempotent.
func (s *Service) RecordSeen(ctx context.Context, viewerID, candidateID uint64) error {
	return s.seen.Record(ctx, viewerID, candidateID)
}

// ResetSeen clears the viewer's history ("show everyone again").
func (s *Service) ResetSeen(ctx context.Context, viewerID uint64) error {
	_, err := s.seen.Reset(ctx, viewerID)
	return err
}

// Current returns the card most recently shown to the viewer, used to page
// through its photos. nil when nothing was shown since the last reset.
func (s *Service) Current(ctx context.Context, viewerID uint64) (*Candidate, error) {
	id, err := s.seen.LastSeen(ctx, viewerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p, err := s.profiles.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.appCtx.Sessions.Touch(ctx, viewerID); err != nil {
		s.appCtx.Logger.Warn("session touch failed", "viewer", viewerID, "err", err)
	}
	c := newCandidate(*p, nil)
	res, err := s.withPhotos(ctx, Result{Candidate: &c})
	return res.Candidate, err
}

func (s *Service) withPhotos(ctx context.Context, res Result) (Result, error) {
	photos, err := s.photos.List(ctx, res.Candidate.ID, PhotoLimit)
	if err != nil {
		return Result{}, err
	}
	for _, p := range photos {
		res.Candidate.Photos = append(res.Candidate.Photos, p.FileID)
	}
	return res, nil
}

// Package profiles covers the registration side of a user: saving the
// questionnaire and activating the profile once it is complete.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oggyb/meetbot/internal/app"
	"github.com/oggyb/meetbot/internal/db"
	svcErr "github.com/oggyb/meetbot/internal/errors"
	"github.com/oggyb/meetbot/internal/match"
	"github.com/oggyb/meetbot/internal/repository"
)

// Questionnaire limits.
const (
	MinAge      = 18
	MaxAge      = 80
	MinNameLen  = 2
	MaxNameLen  = 32
	MaxAboutLen = 300
)

// Input is a full questionnaire. Lat and Lon come together or not at all.
type Input struct {
	UserID   uint64
	Username string
	Name     string
	Age      int
	Gender   string // m/male or f/female
	Seek     string // m, f or b, long forms accepted
	City     string
	Lat, Lon *float64
	About    string
}

type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

func badProfile(format string, args ...any) error {
	return fmt.Errorf("%w: %s", svcErr.ErrBadProfile, fmt.Sprintf(format, args...))
}

// normalize validates in and converts it onto u.
func normalize(in Input, u *db.User) error {
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n < MinNameLen || n > MaxNameLen {
		return badProfile("name must be %d-%d characters", MinNameLen, MaxNameLen)
	}
	if in.Age < MinAge || in.Age > MaxAge {
		return badProfile("age must be %d-%d", MinAge, MaxAge)
	}
	gender, ok := match.ParseGender(in.Gender)
	if !ok {
		return badProfile("unknown gender %q", in.Gender)
	}
	seek, ok := match.ParseSeek(in.Seek)
	if !ok {
		return badProfile("unknown seek %q", in.Seek)
	}
	about := strings.TrimSpace(in.About)
	if utf8.RuneCountInString(about) > MaxAboutLen {
		return badProfile("about is longer than %d characters", MaxAboutLen)
	}
	if (in.Lat == nil) != (in.Lon == nil) {
		return badProfile("lat and lon go together")
	}
	if in.Lat != nil && (*in.Lat < -90 || *in.Lat > 90 || *in.Lon < -180 || *in.Lon > 180) {
		return badProfile("coordinates out of range")
	}

	u.Username = strings.TrimPrefix(strings.TrimSpace(in.Username), "@")
	u.Name = name
	u.Age = in.Age
	u.Gender = string(gender)
	u.Seek = string(seek)
	u.City = nil
	if city := strings.TrimSpace(in.City); city != "" {
		u.City = &city
	}
	u.Lat, u.Lon = in.Lat, in.Lon
	u.About = about
	return nil
}

// Save creates or overwrites a questionnaire.
//
// Behavior:
//   - ErrBadProfile when a field is out of range.
//   - A new user starts as "new"; an existing user keeps their status.
func (s *Service) Save(ctx context.Context, in Input) (*db.User, error) {
	u := db.User{ID: in.UserID, Status: db.StatusNew}
	existing, err := s.profiles.Get(ctx, in.UserID)
	switch {
	case err == nil:
		u = existing.User
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if err := normalize(in, &u); err != nil {
		return nil, err
	}
	if err := s.profiles.Save(ctx, &u); err != nil {
		s.appCtx.Logger.Error("profile save failed", "user", in.UserID, "err", err)
		return nil, err
	}
	return &u, nil
}

// Activate finishes registration: the user becomes visible to browse and
// roulette and their conversation state starts over as idle.
//
// Behavior:
//   - ErrNotFound for an unknown user.
//   - ErrNotEligible for a blocked user or one without a photo.
//   - Only a "new" profile changes status; active and shadow profiles
//     keep theirs and just get the state reset.
func (s *Service) Activate(ctx context.Context, userID uint64) error {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	switch {
	case p.Status == db.StatusBlocked:
		return fmt.Errorf("user %d is blocked: %w", userID, svcErr.ErrNotEligible)
	case p.MainPhoto == "":
		return fmt.Errorf("user %d has no photo: %w", userID, svcErr.ErrNotEligible)
	}

	if p.Status == db.StatusNew {
		if err := s.profiles.SetStatus(ctx, userID, db.StatusActive); err != nil {
			return err
		}
		s.appCtx.Logger.Info("profile activated", "user", userID, "was", p.Status)
	}
	if err := s.appCtx.Sessions.Delete(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("session reset failed", "user", userID, "err", err)
	}
	return nil
}

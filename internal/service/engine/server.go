package engine

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oggyb/meetbot/internal/app"
	svcErr "github.com/oggyb/meetbot/internal/errors"
	"github.com/oggyb/meetbot/internal/service/browse"
	"github.com/oggyb/meetbot/internal/service/contacts"
	"github.com/oggyb/meetbot/internal/service/photos"
	"github.com/oggyb/meetbot/internal/service/profiles"
	"github.com/oggyb/meetbot/internal/service/roulette"
)

// Server implements MatchEngineServer on top of the domain services.
// Every method validates its input, calls one service operation and
// translates errors with svcErr.Map.
type Server struct {
	appCtx   *app.AppContext
	browse   *browse.Service
	roulette *roulette.Coordinator
	contacts *contacts.Service
	photos   *photos.Allocator
	profiles *profiles.Service
}

// NewServer creates a Server. The coordinator is owned by the caller,
// which also shuts it down.
func NewServer(appCtx *app.AppContext, coord *roulette.Coordinator) *Server {
	return &Server{
		appCtx:   appCtx,
		browse:   browse.NewService(appCtx),
		roulette: coord,
		contacts: contacts.NewService(appCtx),
		photos:   photos.NewAllocator(appCtx),
		profiles: profiles.NewService(appCtx),
	}
}

var _ MatchEngineServer = (*Server)(nil)

// PickNext returns {found, reset, candidate}. The pick is not recorded.
func (s *Server) PickNext(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	viewerID, err := idOf(req, "viewer_id")
	if err != nil {
		return nil, err
	}
	res, err := s.browse.PickNext(ctx, viewerID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return resultStruct(res)
}

// ShowNext is PickNext that also records the pick as seen.
func (s *Server) ShowNext(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	viewerID, err := idOf(req, "viewer_id")
	if err != nil {
		return nil, err
	}
	res, err := s.browse.ShowNext(ctx, viewerID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return resultStruct(res)
}

// RecordSeen expects {viewer_id, candidate_id}.
func (s *Server) RecordSeen(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	viewerID, err := requiredID(req, "viewer_id")
	if err != nil {
		return nil, err
	}
	candidateID, err := requiredID(req, "candidate_id")
	if err != nil {
		return nil, err
	}
	if viewerID == candidateID {
		return nil, svcErr.InvalidArgument("cannot record yourself as seen")
	}
	if err := s.browse.RecordSeen(ctx, viewerID, candidateID); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) ResetSeen(ctx context.Context, req *wrapperspb.UInt64Value) (*emptypb.Empty, error) {
	viewerID, err := idOf(req, "viewer_id")
	if err != nil {
		return nil, err
	}
	if err := s.browse.ResetSeen(ctx, viewerID); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

// JoinQueue returns {status}: queued, already_queued or already_paired.
func (s *Server) JoinQueue(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	userID, err := idOf(req, "user_id")
	if err != nil {
		return nil, err
	}
	st, err := s.roulette.Join(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Debug("JoinQueue rejected", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return toStruct(map[string]any{"status": string(st)})
}

func (s *Server) LeaveQueue(ctx context.Context, req *wrapperspb.UInt64Value) (*emptypb.Empty, error) {
	userID, err := idOf(req, "user_id")
	if err != nil {
		return nil, err
	}
	if err := s.roulette.Leave(ctx, userID); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

// AddFavorite expects {user_id, target_id} and returns {created}.
func (s *Server) AddFavorite(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, targetID, err := userAndTarget(req)
	if err != nil {
		return nil, err
	}
	created, err := s.contacts.AddFavorite(ctx, userID, targetID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toStruct(map[string]any{"created": created})
}

// RemoveFavorite expects {user_id, target_id} and returns {removed}.
func (s *Server) RemoveFavorite(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, targetID, err := userAndTarget(req)
	if err != nil {
		return nil, err
	}
	removed, err := s.contacts.RemoveFavorite(ctx, userID, targetID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toStruct(map[string]any{"removed": removed})
}

// ListFavorites expects {user_id, page_token?, limit?} and returns
// {favorites: [{user_id, added_at}], next_page_token?}.
func (s *Server) ListFavorites(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}
	var token *string
	if t := optionalString(req, "page_token"); t != "" {
		token = &t
	}

	entries, next, err := s.contacts.ListFavorites(ctx, userID, token, optionalInt(req, "limit"))
	if err != nil {
		return nil, svcErr.Map(err)
	}

	favorites := make([]any, 0, len(entries))
	for _, e := range entries {
		favorites = append(favorites, map[string]any{
			"user_id":  idValue(e.PeerID),
			"added_at": e.CreatedAt.UnixMilli(),
		})
	}
	out := map[string]any{"favorites": favorites}
	if next != nil {
		out["next_page_token"] = *next
	}
	return toStruct(out)
}

func (s *Server) CountFavorites(ctx context.Context, req *wrapperspb.UInt64Value) (*wrapperspb.UInt64Value, error) {
	userID, err := idOf(req, "user_id")
	if err != nil {
		return nil, err
	}
	n, err := s.contacts.CountFavorites(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return wrapperspb.UInt64(uint64(n)), nil
}

// SendContactRequest expects {user_id, target_id, origin?} and returns
// the request.
func (s *Server) SendContactRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, targetID, err := userAndTarget(req)
	if err != nil {
		return nil, err
	}
	cr, err := s.contacts.SendRequest(ctx, userID, targetID, optionalString(req, "origin"))
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toStruct(map[string]any{
		"request_id": idValue(cr.ID),
		"status":     cr.Status,
	})
}

// ResolveContactRequest expects {request_id, user_id, accept}.
func (s *Server) ResolveContactRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requestID, err := requiredID(req, "request_id")
	if err != nil {
		return nil, err
	}
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}

	resolve := s.contacts.Decline
	if optionalBool(req, "accept") {
		resolve = s.contacts.Accept
	}
	cr, err := resolve(ctx, requestID, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toStruct(map[string]any{
		"request_id": idValue(cr.ID),
		"from_id":    idValue(cr.FromID),
		"status":     cr.Status,
	})
}

// AddPhoto expects {user_id, file_id} and returns the allocated slot.
func (s *Server) AddPhoto(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}
	fileID := optionalString(req, "file_id")
	if fileID == "" {
		return nil, svcErr.InvalidArgument("file_id is required")
	}
	slot, err := s.photos.Add(ctx, userID, fileID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toStruct(slotMap(slot))
}

// RemovePhoto expects {user_id, photo_id}.
func (s *Server) RemovePhoto(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}
	photoID, err := requiredID(req, "photo_id")
	if err != nil {
		return nil, err
	}
	if err := s.photos.Remove(ctx, userID, photoID); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

// ListPhotos returns {photos: [slot...]}, main first.
func (s *Server) ListPhotos(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	userID, err := idOf(req, "user_id")
	if err != nil {
		return nil, err
	}
	slots, err := s.photos.List(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]any, 0, len(slots))
	for _, sl := range slots {
		out = append(out, slotMap(sl))
	}
	return toStruct(map[string]any{"photos": out})
}

// SaveProfile expects {user_id, name, age, gender, seek, username?, city?,
// lat?, lon?, about?} and returns {user_id, status}.
func (s *Server) SaveProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}
	u, err := s.profiles.Save(ctx, profiles.Input{
		UserID:   userID,
		Username: optionalString(req, "username"),
		Name:     optionalString(req, "name"),
		Age:      optionalInt(req, "age"),
		Gender:   optionalString(req, "gender"),
		Seek:     optionalString(req, "seek"),
		City:     optionalString(req, "city"),
		Lat:      optionalFloat(req, "lat"),
		Lon:      optionalFloat(req, "lon"),
		About:    optionalString(req, "about"),
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toStruct(map[string]any{"user_id": idValue(u.ID), "status": u.Status})
}

// ActivateProfile completes registration; the user needs a photo.
func (s *Server) ActivateProfile(ctx context.Context, req *wrapperspb.UInt64Value) (*emptypb.Empty, error) {
	userID, err := idOf(req, "user_id")
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Activate(ctx, userID); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

func userAndTarget(req *structpb.Struct) (uint64, uint64, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return 0, 0, err
	}
	targetID, err := requiredID(req, "target_id")
	if err != nil {
		return 0, 0, err
	}
	return userID, targetID, nil
}

func resultStruct(res browse.Result) (*structpb.Struct, error) {
	out := map[string]any{
		"found": res.Candidate != nil,
		"reset": res.Reset,
	}
	if c := res.Candidate; c != nil {
		card := map[string]any{
			"id":            idValue(c.ID),
			"name":          c.Name,
			"age":           c.Age,
			"city":          c.City,
			"about":         c.About,
			"photo_file_id": c.PhotoFileID,
			"photos":        strings2any(c.Photos),
			"caption":       c.Caption(),
		}
		if c.DistanceKM != nil {
			card["distance_km"] = *c.DistanceKM
		}
		out["candidate"] = card
	}
	return toStruct(out)
}

func slotMap(sl photos.Slot) map[string]any {
	return map[string]any{
		"photo_id": idValue(sl.PhotoID),
		"file_id":  sl.FileID,
		"position": sl.Position,
		"is_main":  sl.IsMain,
	}
}

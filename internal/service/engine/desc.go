// Package engine exposes the matching engine over gRPC as the
// meetbot.v1.MatchEngine service.
//
// Messages are protobuf well-known types (UInt64Value, Struct, Empty), so
// the service is registered from a hand-written descriptor and needs no
// generated code on either side. proto/meetbot/v1/engine.proto holds the
// schema; ids above 2^53 travel as decimal strings.
package engine

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "meetbot.v1.MatchEngine"

// MatchEngineServer is the server API for the MatchEngine service.
type MatchEngineServer interface {
	// Browse
	PickNext(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	ShowNext(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	RecordSeen(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ResetSeen(context.Context, *wrapperspb.UInt64Value) (*emptypb.Empty, error)

	// Roulette
	JoinQueue(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	LeaveQueue(context.Context, *wrapperspb.UInt64Value) (*emptypb.Empty, error)

	// Favorites and contact requests
	AddFavorite(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveFavorite(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFavorites(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CountFavorites(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.UInt64Value, error)
	SendContactRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveContactRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)

	// Profiles
	SaveProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActivateProfile(context.Context, *wrapperspb.UInt64Value) (*emptypb.Empty, error)

	// Photos
	AddPhoto(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemovePhoto(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ListPhotos(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
}

// ServiceDesc describes MatchEngine for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("PickNext", MatchEngineServer.PickNext),
		unary("ShowNext", MatchEngineServer.ShowNext),
		unary("RecordSeen", MatchEngineServer.RecordSeen),
		unary("ResetSeen", MatchEngineServer.ResetSeen),
		unary("JoinQueue", MatchEngineServer.JoinQueue),
		unary("LeaveQueue", MatchEngineServer.LeaveQueue),
		unary("AddFavorite", MatchEngineServer.AddFavorite),
		unary("RemoveFavorite", MatchEngineServer.RemoveFavorite),
		unary("ListFavorites", MatchEngineServer.ListFavorites),
		unary("CountFavorites", MatchEngineServer.CountFavorites),
		unary("SendContactRequest", MatchEngineServer.SendContactRequest),
		unary("ResolveContactRequest", MatchEngineServer.ResolveContactRequest),
		unary("SaveProfile", MatchEngineServer.SaveProfile),
		unary("ActivateProfile", MatchEngineServer.ActivateProfile),
		unary("AddPhoto", MatchEngineServer.AddPhoto),
		unary("RemovePhoto", MatchEngineServer.RemovePhoto),
		unary("ListPhotos", MatchEngineServer.ListPhotos),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "meetbot/v1/engine.proto",
}

// RegisterMatchEngineServer attaches srv to s.
func RegisterMatchEngineServer(s grpc.ServiceRegistrar, srv MatchEngineServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the MethodDesc the protoc plugin would generate for call.
func unary[Req, Resp any](method string, call func(MatchEngineServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(MatchEngineServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client is a thin MatchEngine client for the bot front end and tests.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) PickNext(ctx context.Context, viewerID uint64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, fullMethod("PickNext"), wrapperspb.UInt64(viewerID), out, opts...)
	return out, err
}

func (c *Client) RecordSeen(ctx context.Context, viewerID, candidateID uint64, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(map[string]any{"viewer_id": idValue(viewerID), "candidate_id": idValue(candidateID)})
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, fullMethod("RecordSeen"), in, new(emptypb.Empty), opts...)
}

func (c *Client) JoinQueue(ctx context.Context, userID uint64, opts ...grpc.CallOption) (string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("JoinQueue"), wrapperspb.UInt64(userID), out, opts...); err != nil {
		return "", err
	}
	return out.GetFields()["status"].GetStringValue(), nil
}

func (c *Client) LeaveQueue(ctx context.Context, userID uint64, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("LeaveQueue"), wrapperspb.UInt64(userID), new(emptypb.Empty), opts...)
}

package engine

import (
	"google.golang.org/grpc"

	"github.com/oggyb/meetbot/internal/app"
	"github.com/oggyb/meetbot/internal/service/roulette"
)

// Registrar ties the MatchEngine service into the gRPC server.
type Registrar struct {
	appCtx *app.AppContext
	coord  *roulette.Coordinator
}

// NewRegistrar creates a new Registrar for the MatchEngine service.
func NewRegistrar(appCtx *app.AppContext, coord *roulette.Coordinator) *Registrar {
	return &Registrar{appCtx: appCtx, coord: coord}
}

// Register attaches the MatchEngine implementation to the gRPC server.
func (r *Registrar) Register(s *grpc.Server) {
	RegisterMatchEngineServer(s, NewServer(r.appCtx, r.coord))
}

package server

import "google.golang.org/grpc"

// Registrar is a common interface for all gRPC service registrars.
type Registrar interface {
	Register(s *grpc.Server)
}

// RegistrarFunc adapts a plain function to Registrar.
type RegistrarFunc func(s *grpc.Server)

func (f RegistrarFunc) Register(s *grpc.Server) { f(s) }

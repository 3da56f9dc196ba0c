package health

import (
	"log/slog"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ChatService is the name probes can ask about besides the overall "" status.
const ChatService = "guild-chat.Chat"

// NewServer builds a gRPC server exposing only the standard health service.
func NewServer(log *slog.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(log)))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	reflection.Register(s)

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ChatService, healthpb.HealthCheckResponse_SERVING)
	return s, healthServer
}

// Drain flags every service as not serving before the server stops.
func Drain(healthServer *health.Server) {
	healthServer.Shutdown()
}

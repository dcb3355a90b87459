package grpc

import (
	"fmt"
	"net"

	"github.com/juju/loggo"
	"google.golang.org/grpc"

	"download-sink/internal/channel"
)

var logger = loggo.GetLogger("sink.grpc")

// Server wraps the gRPC server
type Server struct {
	grpcServer *grpc.Server
	service    *ChannelService
	port       string
}

// NewServer creates and configures a new gRPC server. No services are
// registered; every call is routed through the unknown service handler so
// method names stay as dynamic as the channel they map to.
func NewServer(port string, ch *channel.Channel) *Server {
	service := NewChannelService(ch)

	grpcServer := grpc.NewServer(
		grpc.UnknownServiceHandler(service.handleStream),
		grpc.MaxRecvMsgSize(channel.MaxArgumentsSize),
	)

	return &Server{
		grpcServer: grpcServer,
		service:    service,
		port:       port,
	}
}

// Start starts the gRPC server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logger.Infof("gRPC server starting on %s", addr)
	return s.Serve(lis)
}

// Serve accepts connections on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the gRPC server
func (s *Server) Stop() {
	logger.Infof("stopping gRPC server")
	s.grpcServer.GracefulStop()
	logger.Infof("gRPC server stopped")
}

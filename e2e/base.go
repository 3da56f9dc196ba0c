package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"guild-chat/auth"
	"guild-chat/client"
	"guild-chat/domain"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type BaseSuite struct {
	suite.Suite
	Config Config
	log    *slog.Logger
}

// SetupSuite loads the environment configuration and skips when no server is configured.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("CHAT_SERVER_URL is not set")
	}
	s.log = logs.GetLoggerFromString("WARN")
}

func (s *BaseSuite) header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// WithGrpc provides a connection to the health server within a contextual test step.
func (s *BaseSuite) WithGrpc(name string, fn func(ctx context.Context, conn *grpc.ClientConn)) {
	s.header(name)
	conn, err := grpc.NewClient(s.Config.GrpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.GrpcAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, conn)
}

// NewClient builds a chat client for identity, signing a token when a secret is configured.
func (s *BaseSuite) NewClient(name string, identity domain.Identity) *client.Client {
	s.header(name)
	var token string
	if s.Config.JWTSecret != "" {
		var err error
		token, err = auth.NewTokens(s.Config.JWTSecret).GenerateToken(identity.UserID, identity.Username, time.Hour)
		s.Require().NoError(err)
	}
	return client.New(client.Config{
		BaseURL:     s.Config.ServerURL,
		Identity:    identity,
		Token:       token,
		DialTimeout: 5 * time.Second,
	}, s.log)
}

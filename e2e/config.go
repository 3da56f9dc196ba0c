package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CHAT_SERVER_URL is the http base url of a running server, e2e tests are skipped without it
	ServerURL string `envconfig:"CHAT_SERVER_URL"`
	GrpcAddr  string `envconfig:"CHAT_GRPC_ADDR" default:"localhost:9090"`
	// JWT_SECRET must match the server one when the server verifies tokens
	JWTSecret string `envconfig:"JWT_SECRET"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

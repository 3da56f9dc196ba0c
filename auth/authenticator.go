package auth

import (
	"fmt"
	"log/slog"
	"strings"

	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/errors"
)

// Authenticator turns an auth envelope into an identity.
// Without tokens the declared identity is trusted as is.
type Authenticator struct {
	tokens *Tokens
	log    *slog.Logger
}

// NewAuthenticator requires a valid token matching the declared user when tokens is not nil.
func NewAuthenticator(tokens *Tokens, log *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, log: log}
}

func (a *Authenticator) Authenticate(in envelope.Inbound) (domain.Identity, error) {
	claim := IdentityClaim{
		UserID:   strings.TrimSpace(in.UserID),
		Username: strings.TrimSpace(in.Username),
	}
	if err := ValidateIdentity(claim); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidEnvelope, err)
	}

	if a.tokens != nil {
		claims, err := a.tokens.ValidateToken(in.Token)
		if err != nil {
			a.log.Debug("Token rejected", "user_id", claim.UserID, "error", err)
			return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
		}
		if claims.UserID != claim.UserID {
			a.log.Warn("Token issued for another user", "user_id", claim.UserID, "token_user_id", claims.UserID)
			return domain.Identity{}, errors.ErrInvalidToken
		}
	}

	return domain.Identity{UserID: claim.UserID, Username: claim.Username}, nil
}

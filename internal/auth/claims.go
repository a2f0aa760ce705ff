package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

// TokenTypeDispatch is the only token this service accepts.
const TokenTypeDispatch TokenType = "dispatch"

// Claims are the only supported JWT claims shape for dispatch tokens.
// Subject names the system allowed to trigger outbound calls.
type Claims struct {
	jwt.RegisteredClaims

	TokenType TokenType `json:"token_type"`
}

package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload is the application data minted into an access token.
type AccessTokenPayload struct {
	UserID   int64
	Username string
	JTI      string
}

// AccessTokenClaims is the wire shape of a signed access token.
type AccessTokenClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

package api

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpupo63/client-project-portal/services"
)

type keyType string

const claimsKey keyType = "claims"

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
	RoleClient       Role = "client"
)

// Claims is the payload of the portal's HS256 access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// ctxWithClaims adds the authenticated caller to the context
func ctxWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ctxGetClaims retrieves the authenticated caller from the context
func ctxGetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// requesterFrom maps the caller onto the identity project ownership uses.
// Anonymous requests yield the zero Requester.
func requesterFrom(ctx context.Context) services.Requester {
	claims, ok := ctxGetClaims(ctx)
	if !ok {
		return services.Requester{}
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	return services.Requester{UserID: userID, Email: claims.Email}
}

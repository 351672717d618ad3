package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/tournament-registry/models"
)

// Имена JWT claims, которые выдаёт провайдер аутентификации.
const (
	jwtClaimUserID = "user_id"
	jwtClaimEmail  = "email"
	jwtClaimRole   = "role"
)

func sessionFromClaims(claims jwt.MapClaims) (*models.Session, error) {
	userID, err := userIDFromClaims(claims)
	if err != nil {
		return nil, err
	}
	role, err := roleFromClaims(claims)
	if err != nil {
		return nil, err
	}
	email, _ := claims[jwtClaimEmail].(string)
	return &models.Session{UserID: userID, Email: email, Role: role}, nil
}

func userIDFromClaims(claims jwt.MapClaims) (string, error) {
	raw, ok := claims[jwtClaimUserID]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("empty '%s' claim", jwtClaimUserID)
		}
		return v, nil
	case float64:
		// numeric ids from older identity providers
		if v <= 0 || v != float64(int64(v)) {
			return "", fmt.Errorf("invalid user ID value in '%s' claim: %v", jwtClaimUserID, v)
		}
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", fmt.Errorf("invalid type for '%s' claim: expected string or number, got %T", jwtClaimUserID, raw)
	}
}

// roleFromClaims defaults to player when the provider omits the role.
func roleFromClaims(claims jwt.MapClaims) (models.UserRole, error) {
	raw, ok := claims[jwtClaimRole]
	if !ok {
		return models.RolePlayer, nil
	}
	roleStr, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, raw)
	}
	role := models.UserRole(roleStr)
	if !role.Valid() {
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
	return role, nil
}

func GetUserIDFromContext(ctx context.Context) (string, error) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return "", errors.New("session not found in context")
	}
	return session.UserID, nil
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return "", errors.New("session not found in context")
	}
	return session.Role, nil
}

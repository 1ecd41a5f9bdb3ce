package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Dosada05/matchday-system/models"
	"github.com/golang-jwt/jwt/v4"
)

// Имена JWT claims, которые выдаёт AuthHandler.Login.
const (
	jwtClaimAdminID = "admin_id"
	jwtClaimRole    = "role"
)

func GetAdminIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(adminContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("admin claims not found in context or invalid type")
	}

	adminIDClaim, ok := claims[jwtClaimAdminID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimAdminID)
	}

	// JSON-числа декодируются в float64; строковый вариант оставлен на
	// случай токенов, выписанных внешними инструментами.
	adminIDFloat, ok := adminIDClaim.(float64)
	if !ok {
		adminIDStr, okStr := adminIDClaim.(string)
		if okStr {
			adminIDInt, err := strconv.Atoi(adminIDStr)
			if err == nil {
				if adminIDInt <= 0 {
					return 0, fmt.Errorf("invalid admin ID value in '%s' claim: %d", jwtClaimAdminID, adminIDInt)
				}
				return adminIDInt, nil
			}
		}
		return 0, fmt.Errorf("invalid type for '%s' claim: expected float64 or string, got %T", jwtClaimAdminID, adminIDClaim)
	}

	if adminIDFloat != float64(int(adminIDFloat)) {
		return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimAdminID, adminIDFloat)
	}

	adminID := int(adminIDFloat)
	if adminID <= 0 {
		return 0, fmt.Errorf("invalid admin ID value in '%s' claim: %d", jwtClaimAdminID, adminID)
	}

	return adminID, nil
}

func GetAdminRoleFromContext(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(adminContextKey).(jwt.MapClaims)
	if !ok {
		return "", errors.New("admin claims not found in context or invalid type")
	}

	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", jwtClaimRole)
	}

	roleStr, ok := roleClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, roleClaim)
	}

	switch roleStr {
	case models.RoleAdmin:
		return roleStr, nil
	default:
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
}

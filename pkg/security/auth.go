package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey = "userID"
	roleKey   = "role"
)

var ErrNoActor = errors.New("no authenticated user in context")

// GenerateJWT signs a token for a user issued by the external login service.
func GenerateJWT(secret []byte, userID int, role roles.Role, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userID": strconv.Itoa(userID),
		"role":   role.String(),
		"exp":    time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// CurrentActor reads the caller set by JWTMiddleware.
func CurrentActor(c *gin.Context) (models.Actor, error) {
	rawID, ok := c.Get(userIDKey)
	if !ok {
		return models.Actor{}, ErrNoActor
	}
	idString, ok := rawID.(string)
	if !ok {
		return models.Actor{}, fmt.Errorf("userID is not a string")
	}
	id, err := strconv.Atoi(idString)
	if err != nil {
		return models.Actor{}, fmt.Errorf("userID is not numeric: %w", err)
	}

	role, _ := c.Get(roleKey)
	roleString, _ := role.(string)
	r := roles.Role(roleString)
	if !r.IsValid() {
		return models.Actor{}, fmt.Errorf("unknown role %q", roleString)
	}

	return models.Actor{UserID: id, Role: r}, nil
}

// SetActor is used by tests and internal tooling to authenticate a context directly.
func SetActor(c *gin.Context, actor models.Actor) {
	c.Set(userIDKey, strconv.Itoa(actor.UserID))
	c.Set(roleKey, actor.Role.String())
}

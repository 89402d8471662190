package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/archive/internal/models"
)

// Headers carrying the caller identity.
const (
	UserHeader = "X-Archive-User"
	RoleHeader = "X-Archive-Role"
)

const actorKey = "actor"

// ActorMiddleware stores the caller identity from the request headers in the
// Gin context. Requests without a username pass through anonymous.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, err := models.NewUser(c.GetHeader(UserHeader), c.GetHeader(RoleHeader)); err == nil {
			c.Set(actorKey, u)
		}
		c.Next()
	}
}

// RequireActor rejects requests that did not name a user.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Actor(c); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + UserHeader + " header"})
			return
		}
		c.Next()
	}
}

// Actor returns the identity set by ActorMiddleware.
func Actor(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

// limitKey prefers the caller's username, falling back to the client IP.
func limitKey(c *gin.Context) string {
	if u, ok := Actor(c); ok {
		return "user:" + u.Username
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Karan-0412/nabha/internal/model"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/httputil"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	contextIdentity = "identity"
)

var errMissingIdentity = errors.New("missing caller identity")

// Identity reads the caller identity from the X-User-ID and X-User-Role
// headers. Requests without the headers pass through anonymously; a bad role
// is rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		role := model.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))

		if userID == "" && role == "" {
			c.Next()
			return
		}
		if userID == "" || !role.Valid() {
			httputil.RespondWithError(c, apperrors.BadRequest("X-User-ID and X-User-Role (patient or doctor) must be sent together", nil))
			c.Abort()
			return
		}

		c.Set(contextIdentity, model.Identity{Role: role, UserID: userID})
		c.Next()
	}
}

// RequireIdentity rejects anonymous requests.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetIdentity(c); !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized(errMissingIdentity))
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetIdentity(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(contextIdentity)
	if !ok {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}

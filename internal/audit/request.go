package audit

import (
	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// Request is the actor context of an audited HTTP request
type Request struct {
	User      *models.User   // set for user sessions
	APIKey    *models.APIKey // set for API-key authentication; User is then nil
	IPAddress string
}

// RequestFromGin reads the principal stored by the auth middleware. A request authenticated with
// an API key carries the key and no user, even when the key belongs to an organization with
// members.
func RequestFromGin(c *gin.Context) *Request {
	req := &Request{IPAddress: c.ClientIP()}

	if v, ok := c.Get("api_key"); ok {
		if key, ok := v.(*models.APIKey); ok && key != nil {
			req.APIKey = key
			return req
		}
	}
	if v, ok := c.Get("user"); ok {
		if user, ok := v.(*models.User); ok && user != nil {
			req.User = user
		}
	}
	return req
}

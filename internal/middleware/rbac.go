// Package middleware (rbac.go) implements organization-scoped authorization.
//
// A session user's scopes come from their membership role in the organization being
// accessed, resolved on every request. An API key carries its own scopes but is only valid
// inside the organization that issued it.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/auth"
	"github.com/trailkeeper/trailkeeper/internal/db/models"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
)

// Context keys set by OrganizationMiddleware
const (
	ContextKeyOrganization   = "organization"
	ContextKeyOrganizationID = "organization_id"
)

// OrganizationMiddleware loads the organization named by the slug in the route parameter
func OrganizationMiddleware(orgRepo *repositories.OrganizationRepository, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, err := orgRepo.GetBySlug(c.Request.Context(), c.Param(param))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load organization"})
			return
		}
		if org == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "The requested resource does not exist"})
			return
		}
		c.Set(ContextKeyOrganization, org)
		c.Set(ContextKeyOrganizationID, org.ID)
		c.Next()
	}
}

// OrganizationFromContext returns the organization set by OrganizationMiddleware, if any
func OrganizationFromContext(c *gin.Context) *models.Organization {
	if v, ok := c.Get(ContextKeyOrganization); ok {
		if org, ok := v.(*models.Organization); ok {
			return org
		}
	}
	return nil
}

// OrgScopes resolves the scopes the authenticated caller holds in orgID. The boolean is
// false when the caller has no access to the organization at all.
func OrgScopes(c *gin.Context, orgRepo *repositories.OrganizationRepository, orgID string) ([]string, bool, error) {
	if key := APIKeyFromContext(c); key != nil {
		if key.OrganizationID != orgID {
			return nil, false, nil
		}
		return key.Scopes, true, nil
	}

	user := UserFromContext(c)
	if user == nil {
		return nil, false, nil
	}
	if user.IsSuperuser {
		all := auth.AllScopes()
		scopes := make([]string, len(all))
		for i, s := range all {
			scopes[i] = string(s)
		}
		return scopes, true, nil
	}

	member, err := orgRepo.GetMember(c.Request.Context(), orgID, user.ID)
	if err != nil {
		return nil, false, err
	}
	if member == nil {
		return nil, false, nil
	}
	return auth.ScopesForRole(member.Role), true, nil
}

// RequireOrgScope checks that the caller holds at least one of scopes in the organization
// loaded by OrganizationMiddleware
func RequireOrgScope(orgRepo *repositories.OrganizationRepository, scopes ...auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		org := OrganizationFromContext(c)
		if org == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Organization context not found"})
			return
		}

		granted, isMember, err := OrgScopes(c, orgRepo, org.ID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Failed to check organization membership"})
			return
		}
		if !isMember || !auth.HasAnyScope(granted, scopes) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"detail": "You do not have permission to perform this action.",
			})
			return
		}

		c.Set(ContextKeyScopes, granted)
		c.Next()
	}
}

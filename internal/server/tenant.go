package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fieldtrack/internal/authorization"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"github.com/smallbiznis/fieldtrack/pkg/actorctx"
)

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func parsePathID(c *gin.Context) (snowflake.ID, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return id, true
}

// requireSuperuser guards the HR surface: countries, employees and
// assignments are written by upstream tooling, not by field roles.
func requireSuperuser(c *gin.Context) bool {
	actor, ok := actorctx.FromContext(c.Request.Context())
	if !ok || !actor.IsSuperuser {
		AbortWithError(c, authorization.ErrForbidden)
		return false
	}
	return true
}

func (s *Server) createCountry(c *gin.Context) {
	if !requireSuperuser(c) {
		return
	}

	var req tenantdomain.CreateCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.tenantSvc.CreateCountry(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) listCountries(c *gin.Context) {
	resp, err := s.tenantSvc.ListCountries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) createEmployee(c *gin.Context) {
	if !requireSuperuser(c) {
		return
	}

	var req tenantdomain.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.tenantSvc.CreateEmployee(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// canViewEmployee gates the HR read surface: superusers, the employee
// themselves, and country managers sharing an active country with the target
// may look. Everyone else gets not_found, leaking nothing.
func (s *Server) canViewEmployee(c *gin.Context, targetID snowflake.ID) bool {
	actor, ok := actorctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return false
	}
	if actor.IsSuperuser || actor.EmployeeID == targetID {
		return true
	}

	ctx := c.Request.Context()
	byCountry, err := s.tenantSvc.RolesByCountry(ctx, actor.EmployeeID)
	if err != nil {
		AbortWithError(c, err)
		return false
	}
	targetCountries, err := s.tenantSvc.ActiveCountryIDs(ctx, targetID)
	if err != nil {
		AbortWithError(c, err)
		return false
	}
	for _, countryID := range targetCountries {
		for _, role := range byCountry[countryID] {
			if role == tenantdomain.RoleCountryManager {
				return true
			}
		}
	}

	AbortWithError(c, tenantdomain.ErrNotFound)
	return false
}

func (s *Server) getEmployee(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	if !s.canViewEmployee(c, id) {
		return
	}

	resp, err := s.tenantSvc.GetEmployee(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createAssignmentRequest struct {
	EmployeeID string     `json:"employee_id"`
	CountryID  string     `json:"country_id"`
	Role       string     `json:"role"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
}

func (s *Server) createAssignment(c *gin.Context) {
	if !requireSuperuser(c) {
		return
	}

	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	employeeID, err := parseID(req.EmployeeID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	countryID, err := parseID(req.CountryID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.tenantSvc.CreateAssignment(c.Request.Context(), tenantdomain.CreateAssignmentRequest{
		EmployeeID: employeeID,
		CountryID:  countryID,
		Role:       req.Role,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) endAssignment(c *gin.Context) {
	if !requireSuperuser(c) {
		return
	}

	id, ok := parsePathID(c)
	if !ok {
		return
	}

	if err := s.tenantSvc.EndAssignment(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ended": true}})
}

func (s *Server) listAssignments(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	if !s.canViewEmployee(c, id) {
		return
	}

	resp, err := s.tenantSvc.ListAssignments(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) mainRole(c *gin.Context) {
	actor, ok := actorctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	role, err := s.tenantSvc.MainRole(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"main_role": role}})
}

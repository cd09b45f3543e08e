package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	projectdomain "github.com/smallbiznis/fieldtrack/internal/project/domain"
	progressdomain "github.com/smallbiznis/fieldtrack/internal/progress/domain"
)

type createProjectRequest struct {
	CountryID       string     `json:"country_id"`
	CoordinatorID   string     `json:"coordinator_id"`
	Name            string     `json:"name"`
	BudgetAllocated string     `json:"budget_allocated"`
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	countryID, err := parseID(req.CountryID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	coordinatorID, err := parseID(req.CoordinatorID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	svcReq := projectdomain.CreateProjectRequest{
		CountryID:       countryID,
		CoordinatorID:   coordinatorID,
		Name:            req.Name,
		BudgetAllocated: req.BudgetAllocated,
		EndDate:         req.EndDate,
	}
	if req.StartDate != nil {
		svcReq.StartDate = *req.StartDate
	}

	resp, err := s.projectSvc.CreateProject(c.Request.Context(), svcReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) getProject(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	resp, err := s.projectSvc.GetProject(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProjectRequest struct {
	Name          *string    `json:"name"`
	CoordinatorID *string    `json:"coordinator_id"`
	Status        *string    `json:"status"`
	EndDate       *time.Time `json:"end_date"`
	IsActive      *bool      `json:"is_active"`
}

func (s *Server) updateProject(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	svcReq := projectdomain.UpdateProjectRequest{
		Name:     req.Name,
		EndDate:  req.EndDate,
		IsActive: req.IsActive,
	}
	if req.CoordinatorID != nil {
		coordinatorID, err := parseID(*req.CoordinatorID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		svcReq.CoordinatorID = &coordinatorID
	}
	if req.Status != nil {
		status := progressdomain.ProjectStatus(*req.Status)
		svcReq.Status = &status
	}

	resp, err := s.projectSvc.UpdateProject(c.Request.Context(), id, svcReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) listProjects(c *gin.Context) {
	var query struct {
		CountryID  string `form:"country_id"`
		ActiveOnly bool   `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req := projectdomain.ListProjectsRequest{ActiveOnly: query.ActiveOnly}
	if query.CountryID != "" {
		countryID, err := parseID(query.CountryID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.CountryID = &countryID
	}

	resp, err := s.projectSvc.ListProjects(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createSiteRequest struct {
	ProjectID  string `json:"project_id"`
	SiteCode   string `json:"site_code"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	TeamLeadID string `json:"team_lead_id"`
}

func (s *Server) createSite(c *gin.Context) {
	var req createSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	projectID, err := parseID(req.ProjectID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	svcReq := projectdomain.CreateSiteRequest{
		ProjectID: projectID,
		SiteCode:  req.SiteCode,
		Name:      req.Name,
		Location:  req.Location,
	}
	if req.TeamLeadID != "" {
		teamLeadID, err := parseID(req.TeamLeadID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		svcReq.TeamLeadID = &teamLeadID
	}

	resp, err := s.projectSvc.CreateSite(c.Request.Context(), svcReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) getSite(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	resp, err := s.projectSvc.GetSite(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateSiteRequest struct {
	Name       *string `json:"name"`
	Location   *string `json:"location"`
	TeamLeadID *string `json:"team_lead_id"`
}

func (s *Server) updateSite(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	var req updateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	svcReq := projectdomain.UpdateSiteRequest{
		Name:     req.Name,
		Location: req.Location,
	}
	if req.TeamLeadID != nil {
		// An empty string clears the team lead.
		if *req.TeamLeadID == "" {
			var none snowflake.ID
			svcReq.TeamLeadID = &none
		} else {
			teamLeadID, err := parseID(*req.TeamLeadID)
			if err != nil {
				AbortWithError(c, ErrInvalidRequest)
				return
			}
			svcReq.TeamLeadID = &teamLeadID
		}
	}

	resp, err := s.projectSvc.UpdateSite(c.Request.Context(), id, svcReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) listSites(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	resp, err := s.projectSvc.ListSites(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createTaskRequest struct {
	SiteID            string     `json:"site_id"`
	AssignedToID      string     `json:"assigned_to_id"`
	Description       string     `json:"description"`
	TicketNumber      string     `json:"ticket_number"`
	DueDate           *time.Time `json:"due_date"`
	IsPayrollRelevant bool       `json:"is_payroll_relevant"`
}

func (s *Server) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	siteID, err := parseID(req.SiteID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	assignedToID, err := parseID(req.AssignedToID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.projectSvc.CreateTask(c.Request.Context(), projectdomain.CreateTaskRequest{
		SiteID:            siteID,
		AssignedToID:      assignedToID,
		Description:       req.Description,
		TicketNumber:      req.TicketNumber,
		DueDate:           req.DueDate,
		IsPayrollRelevant: req.IsPayrollRelevant,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) getTask(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	resp, err := s.projectSvc.GetTask(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateTaskRequest struct {
	Status       *string    `json:"status"`
	AssignedToID *string    `json:"assigned_to_id"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"due_date"`
}

func (s *Server) updateTask(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	svcReq := projectdomain.UpdateTaskRequest{
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		status := progressdomain.TaskStatus(*req.Status)
		svcReq.Status = &status
	}
	if req.AssignedToID != nil {
		assignedToID, err := parseID(*req.AssignedToID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		svcReq.AssignedToID = &assignedToID
	}

	resp, err := s.projectSvc.UpdateTask(c.Request.Context(), id, svcReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) deleteTask(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	if err := s.projectSvc.DeleteTask(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) listTasks(c *gin.Context) {
	var query struct {
		SiteID       string `form:"site_id"`
		AssignedToID string `form:"assigned_to_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req := projectdomain.ListTasksRequest{}
	if query.SiteID != "" {
		siteID, err := parseID(query.SiteID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.SiteID = &siteID
	}
	if query.AssignedToID != "" {
		assignedToID, err := parseID(query.AssignedToID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.AssignedToID = &assignedToID
	}

	resp, err := s.projectSvc.ListTasks(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

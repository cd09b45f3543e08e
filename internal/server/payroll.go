package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	payrolldomain "github.com/smallbiznis/fieldtrack/internal/payroll/domain"
)

type createSalaryStructureRequest struct {
	CountryID  string `json:"country_id"`
	Role       string `json:"role"`
	BaseAmount string `json:"base_amount"`
	Currency   string `json:"currency"`
}

func (s *Server) createSalaryStructure(c *gin.Context) {
	var req createSalaryStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	countryID, err := parseID(req.CountryID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.payrollSvc.CreateSalaryStructure(c.Request.Context(), payrolldomain.CreateSalaryStructureRequest{
		CountryID:  countryID,
		Role:       req.Role,
		BaseAmount: req.BaseAmount,
		Currency:   req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createWorkRecordRequest struct {
	TaskID               string     `json:"task_id"`
	WorkDate             *time.Time `json:"work_date"`
	DurationHours        string     `json:"duration_hours"`
	CompletionPercentage int        `json:"completion_percentage"`
	Notes                string     `json:"notes"`
}

func (s *Server) createWorkRecord(c *gin.Context) {
	var req createWorkRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	taskID, err := parseID(req.TaskID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.payrollSvc.RecordWork(c.Request.Context(), payrolldomain.RecordWorkRequest{
		TaskID:               taskID,
		WorkDate:             req.WorkDate,
		DurationHours:        req.DurationHours,
		CompletionPercentage: req.CompletionPercentage,
		Notes:                req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) listWorkRecords(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	resp, err := s.payrollSvc.ListWorkRecords(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) taskCost(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}

	cost, err := s.payrollSvc.TaskCost(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"task_id": id.String(), "cost": cost}})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/models"
)

func (s *Server) handleCaseRun(c *gin.Context) {
	var req models.CaseRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errEnvelope(codeBadRequestShape, err.Error()))
		return
	}

	resp, err := s.caseRuns.Run(c.Request.Context(), req)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created(resp))
}

func (s *Server) handleScenarioRun(c *gin.Context) {
	var req models.ScenarioRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errEnvelope(codeBadRequestShape, err.Error()))
		return
	}

	resp, err := s.scenarioRuns.Enqueue(c.Request.Context(), req)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, accepted(resp))
}

func (s *Server) handleGetScenarioRun(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	run, err := s.scenarioRuns.Get(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(run))
}

func (s *Server) handleScenarioRunReport(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	report, err := s.reports.Build(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(report))
}

func (s *Server) handleScenarioRunCancel(c *gin.Context) {
	var req models.ScenarioRunCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errEnvelope(codeBadRequestShape, err.Error()))
		return
	}

	if err := s.scenarioRuns.Cancel(c.Request.Context(), req.ScenarioRunID); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created(gin.H{"scenario_run_id": req.ScenarioRunID}))
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := models.HealthResponse{Status: "ok", Database: "ok", Broker: "ok"}
	if err := s.dbPing(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}
	if err := s.brokerPing(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Broker = "unreachable"
	}
	c.JSON(http.StatusOK, ok(resp))
}

func parseID(c *gin.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errEnvelope(codeBadRequestShape, "invalid id"))
		return 0, err
	}
	return id, nil
}

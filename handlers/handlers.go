package handlers

import (
	"net/http"
	"strings"

	"emergency-triage-service/triage"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// TriageHandler exposes the triage engine over HTTP. All decision logic
// lives in the triage package; handlers only translate requests.
type TriageHandler struct {
	engine *triage.Engine
}

// NewTriageHandler creates a new triage handler
func NewTriageHandler(engine *triage.Engine) *TriageHandler {
	return &TriageHandler{
		engine: engine,
	}
}

// TurnRequest is one caller utterance
type TurnRequest struct {
	CallerID string `json:"caller_id" binding:"required"`
	Text     string `json:"text"`
}

// ProcessTurn handles POST /turn
func (h *TriageHandler) ProcessTurn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Invalid turn request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	log.WithFields(log.Fields{
		"caller_id": req.CallerID,
		"length":    len(req.Text),
	}).Info("triage.turn.request")

	result, err := h.engine.ProcessTurn(c.Request.Context(), req.CallerID, req.Text)
	if err != nil {
		log.Errorf("Failed to process turn for %s: %v", req.CallerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSession handles GET /session/:caller_id
func (h *TriageHandler) GetSession(c *gin.Context) {
	callerID := c.Param("caller_id")
	snapshot, err := h.engine.GetSession(callerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ResetSession handles POST /session/:caller_id/reset
func (h *TriageHandler) ResetSession(c *gin.Context) {
	callerID := c.Param("caller_id")
	if err := h.engine.ResetSession(callerID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	log.Infof("Session reset for caller %s", callerID)
	c.JSON(http.StatusOK, gin.H{"status": "reset", "caller_id": strings.TrimSpace(callerID)})
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"emergency-triage-service/models"
	"emergency-triage-service/session"
	"emergency-triage-service/triage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() (*gin.Engine, *triage.Engine) {
	gin.SetMode(gin.TestMode)
	engine := triage.NewEngine(session.NewMemoryStore())
	handler := NewTriageHandler(engine)

	router := gin.New()
	router.POST("/turn", handler.ProcessTurn)
	router.GET("/session/:caller_id", handler.GetSession)
	router.POST("/session/:caller_id/reset", handler.ResetSession)
	return router, engine
}

func TestProcessTurn_ValidRequest(t *testing.T) {
	router, _ := setupRouter()

	reqBody := TurnRequest{
		CallerID: "caller-1",
		Text:     "Someone is drowning, not moving, at Camps Bay",
	}
	jsonBody, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/turn", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result models.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.ShouldDispatch)
	assert.NotNil(t, result.DispatchSummary)
	assert.NotEmpty(t, result.ReplyText)
}

func TestProcessTurn_InvalidRequest(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest("POST", "/turn", bytes.NewBuffer([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessTurn_MissingCallerID(t *testing.T) {
	router, _ := setupRouter()

	jsonBody, _ := json.Marshal(map[string]string{"text": "help"})
	req := httptest.NewRequest("POST", "/turn", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSession_Found(t *testing.T) {
	router, engine := setupRouter()

	_, err := engine.ProcessTurn(httptest.NewRequest("GET", "/", nil).Context(), "caller-2", "there's a fire")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/session/caller-2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var snap models.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "caller-2", snap.CallerID)
	assert.Equal(t, 1, snap.ConversationTurns)
}

func TestGetSession_NotFound(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest("GET", "/session/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetSession_Found(t *testing.T) {
	router, engine := setupRouter()

	_, err := engine.ProcessTurn(httptest.NewRequest("GET", "/", nil).Context(), "caller-3", "help")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/session/caller-3/reset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Session is gone afterwards.
	req = httptest.NewRequest("GET", "/session/caller-3", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetSession_NotFound(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest("POST", "/session/unknown/reset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	store   *services.SessionStore
	journal *services.LogWriter
}

func NewSessionHandler(store *services.SessionStore, journal *services.LogWriter) *SessionHandler {
	return &SessionHandler{store: store, journal: journal}
}

type CreateSessionRequest struct {
	Title         string `json:"title" binding:"required,min=1,max=255" example:"Intro to AI"`
	PresenterName string `json:"presenter_name" binding:"required,min=1,max=100" example:"Alex"`
	SlideCount    int    `json:"slide_count" binding:"required,min=1" example:"24"`
}

// CreateSession godoc
// @Summary      Create a live session
// @Description  Create a session and return its join code
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSessionRequest true "Session data"
// @Success      201 {object} models.Session
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.store.CreateSession(presenterID(c), req.Title, req.PresenterName, req.SlideCount)
	if err != nil {
		// Creation is the one write whose persistence failure is surfaced.
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ListSessions godoc
// @Summary      List the presenter's sessions
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} models.Session
// @Router       /api/v1/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.store.ListSessions(presenterID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession godoc
// @Summary      Get live session state
// @Description  Current state of a live session, including the roster
// @Tags         sessions
// @Produce      json
// @Param        code path string true "Session code"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{code} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	session, err := h.store.GetSession(code)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":      session,
		"participants": h.store.Roster(code),
	})
}

// ExportSession godoc
// @Summary      Export a session's interaction history
// @Description  Full journal for a session from the durable store, oldest first
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        code path string true "Session code"
// @Param        types query string false "Comma-separated event types"
// @Param        slide query int false "Filter by slide index"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{code}/export [get]
func (h *SessionHandler) ExportSession(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	session, err := h.store.FindSession(code)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}
	if session.PresenterID != presenterID(c) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: services.ErrUnauthorized.Error()})
		return
	}

	var eventTypes []string
	if raw := c.Query("types"); raw != "" {
		eventTypes = strings.Split(raw, ",")
	}
	slideIndex := -1
	if raw := c.Query("slide"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid slide index"})
			return
		}
		slideIndex = idx
	}

	interactions, err := h.journal.History(code, eventTypes, slideIndex)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_code": code,
		"interactions": interactions,
	})
}

func presenterID(c *gin.Context) uint {
	if v, ok := c.Get("presenter_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

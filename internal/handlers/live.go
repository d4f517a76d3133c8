package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/services"
	"github.com/MrMnky/ai-primer-live-server-sub000/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type LiveHandler struct {
	router *services.EventRouter
}

func NewLiveHandler(router *services.EventRouter) *LiveHandler {
	return &LiveHandler{router: router}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleLive godoc
// @Summary      Live session websocket
// @Description  Bidirectional event channel for one session. Handshake query params: role (presenter|participant), name, participantId.
// @Tags         websocket
// @Param        code path string true "Session code"
// @Param        role query string false "Connection role" default(participant)
// @Param        name query string false "Participant display name"
// @Param        participantId query string false "Stable participant id for reconnects"
// @Router       /ws/session/{code} [get]
func (h *LiveHandler) HandleLive(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	role := c.DefaultQuery("role", ws.RoleParticipant)
	if role != ws.RolePresenter && role != ws.RoleParticipant {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid role"})
		return
	}

	name := c.Query("name")
	if name == "" {
		name = "Anonymous"
	}
	// A client-supplied id keeps responses and reconnects correlated; a
	// fresh one is generated otherwise.
	participantID := c.Query("participantId")
	if participantID == "" {
		participantID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(code, role, participantID, name, conn)
	if err := h.router.Connect(client); err != nil {
		client.Send(ws.Envelope{Type: ws.EventError, Data: ws.ErrorPayload{Message: err.Error()}})
		client.Close()
		return
	}
	defer h.router.Disconnect(client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.router.HandleMessage(client, data)
	}
}

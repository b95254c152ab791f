package handlers

import (
	"net/http"

	"salescompagent/models"
	"salescompagent/services/agent"
	"salescompagent/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler exposes the session boundary: one message in, one reply out.
type ChatHandler struct {
	Agent agent.AgentService
}

func NewChatHandler(agentSvc agent.AgentService) *ChatHandler {
	return &ChatHandler{Agent: agentSvc}
}

// HandleChat processes one user message through the agent router.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	logger := utils.GetLogger()

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid chat request", err.Error())
		return
	}

	resp, err := h.Agent.HandleMessage(c.Request.Context(), req.SessionID, req.Text)
	if err != nil {
		logger.Error("chat step failed", zap.String("sessionID", req.SessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to process message", err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}

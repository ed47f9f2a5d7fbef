package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ai-todo/internal/realtime"
)

type StreamHandler struct {
	hub   *realtime.Hub
	tasks TaskService
	log   *logrus.Logger
}

func NewStreamHandler(hub *realtime.Hub, tasks TaskService, log *logrus.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, tasks: tasks, log: log}
}

// Stream upgrades to a websocket that receives {type:"tasks", data:[...]}
// after every change to the caller's tasks, starting with the current list.
func (h *StreamHandler) Stream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	initial := &realtime.Message{Type: "tasks", Data: h.tasks.ListActive(c.Request.Context(), userID)}
	if err := h.hub.Serve(c.Writer, c.Request, userID, initial); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("websocket upgrade")
	}
}

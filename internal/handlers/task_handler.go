package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-todo/internal/service"
)

type TaskHandler struct {
	tasks    TaskService
	commands CommandService
}

type commandRequest struct {
	Command string `json:"command"`
}

type progressRequest struct {
	Progress any `json:"progress"`
}

func NewTaskHandler(tasks TaskService, commands CommandService) *TaskHandler {
	return &TaskHandler{tasks: tasks, commands: commands}
}

// ListActive returns the caller's open tasks.
func (h *TaskHandler) ListActive(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.tasks.ListActive(c.Request.Context(), userID))
}

// ListAll returns every task of the caller, deleted and complete included.
func (h *TaskHandler) ListAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.tasks.ListAll(c.Request.Context(), userID))
}

// Command applies a natural-language command.
func (h *TaskHandler) Command(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body must be {\"command\": string}")
		return
	}

	res, err := h.commands.ApplyCommand(c.Request.Context(), userID, req.Command)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": res.Tasks, "message": res.Message})
}

func (h *TaskHandler) UpdateProgress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Progress == nil {
		badRequest(c, "body must be {\"progress\": number}")
		return
	}
	progress, err := service.ParseProgress(req.Progress)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.tasks.SetProgress(c.Request.Context(), userID, taskID, progress); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	if err := h.tasks.SoftDelete(c.Request.Context(), userID, taskID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categories CategoryService
}

type createCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func NewCategoryHandler(categories CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.categories.List(c.Request.Context(), userID))
}

func (h *CategoryHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body must be {\"name\": string, \"color\": string}")
		return
	}
	category, err := h.categories.Create(c.Request.Context(), userID, req.Name, req.Color)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "category": category})
}

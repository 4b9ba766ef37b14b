package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trolleywise/backend/internal/domain"
)

// resolveService is the slice of the resolution engine the API needs
type resolveService interface {
	Resolve(ctx context.Context, query domain.ProductQuery) (*domain.MatchResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver resolveService
}

// NewHandler creates a new HTTP handler
func NewHandler(resolver resolveService) *Handler {
	return &Handler{resolver: resolver}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "trolleywise-backend",
		"version": "1.0.0",
	})
}

// ResolveRequest is the body for POST /api/v1/resolve
type ResolveRequest struct {
	UID  string `json:"uid"`
	Name string `json:"name" binding:"required"`
}

// Resolve handles single-name resolution requests
func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	result, err := h.resolver.Resolve(c.Request.Context(), domain.ProductQuery{UID: req.UID, Name: req.Name})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

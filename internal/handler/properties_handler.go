package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/formpilot/internal/pkg/response"
)

// Properties are the public, non secret settings of a running server.
type Properties struct {
	StoreType      string `json:"store_type"`
	AIProvider     string `json:"ai_provider"`
	EmbedModel     string `json:"embed_model"`
	RetrievalLimit int    `json:"retrieval_limit"`
	AuthRequired   bool   `json:"auth_required"`
}

type PropertiesHandler struct {
	properties Properties
}

func NewPropertiesHandler(properties Properties) *PropertiesHandler {
	return &PropertiesHandler{properties: properties}
}

func (h *PropertiesHandler) Get(c *gin.Context) {
	response.Success(c, gin.H{"properties": h.properties})
}

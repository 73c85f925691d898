package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wsayer1/empathic-weave/internal/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (mh *MatchHandler) Create(c *gin.Context) {
	var req struct {
		UserSecretID   string `json:"user_secret_id"`
		TargetSecretID string `json:"target_secret_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userSecretID, err := uuid.Parse(req.UserSecretID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required parameters: user_secret_id and target_secret_id"})
		return
	}
	targetSecretID, err := uuid.Parse(req.TargetSecretID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required parameters: user_secret_id and target_secret_id"})
		return
	}

	result, err := mh.matchService.Create(c.Request.Context(), userSecretID, targetSecretID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message := "Match created successfully"
	if result.AlreadyExists {
		message = "Match already exists"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "match_id": result.Match.ID, "message": message})
}

func (mh *MatchHandler) ListMine(c *gin.Context) {
	matches, err := mh.matchService.ListMine(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

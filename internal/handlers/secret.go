package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wsayer1/empathic-weave/internal/requestdata"
	"github.com/wsayer1/empathic-weave/internal/services"
)

type SecretHandler struct {
	secretService services.SecretService
}

func NewSecretHandler(secretService services.SecretService) *SecretHandler {
	return &SecretHandler{secretService: secretService}
}

// Process accepts an optional identity: an authenticated caller submits an
// owned secret, everyone else submits anonymously. The body user_id is kept
// for parity with older clients but the verified token identity wins.
func (sh *SecretHandler) Process(c *gin.Context) {
	var req struct {
		SecretText string `json:"secret_text"`
		UserID     string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var userID *uuid.UUID
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
		id := rd.UserID
		userID = &id
	} else if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		userID = &id
	}

	result, err := sh.secretService.Process(c.Request.Context(), req.SecretText, userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (sh *SecretHandler) ListMine(c *gin.Context) {
	secrets, err := sh.secretService.ListMine(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secrets": secrets})
}

func (sh *SecretHandler) Claim(c *gin.Context) {
	secretID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid secret id"})
		return
	}
	secret, err := sh.secretService.Claim(c.Request.Context(), secretID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret})
}

func (sh *SecretHandler) Delete(c *gin.Context) {
	secretID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid secret id"})
		return
	}
	if err := sh.secretService.Delete(c.Request.Context(), secretID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

package rest

import (
	"net/http"
	"strings"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"github.com/dayanaadylkhanova/powgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Replies are fixed strings: callers never learn which check failed or why issuance broke.
const (
	msgInternal          = "internal error"
	msgMalformed         = "malformed solution"
	msgRejected          = "challenge rejected"
	msgInvalidSubmission = "invalid submission"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) issue(c *gin.Context) {
	ch, err := s.issuer.NewChallenge(service.IssueOptions{})
	if err != nil {
		logFrom(c, s.log).Error("challenge create failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, ch)
}

type verifyRequest struct {
	entity.Solution
	Payload string `json:"payload"`
}

func (s *Server) verify(c *gin.Context) {
	log := logFrom(c, s.log)

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("bad solution", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgMalformed})
		return
	}
	sol := req.Solution
	if req.Payload != "" {
		var err error
		if sol, err = entity.DecodePayload(req.Payload); err != nil {
			log.Debug("bad solution", "err", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgMalformed})
			return
		}
	}

	if sol.Challenge == "" && sol.Salt == "" && sol.Signature == "" {
		log.Debug("bad solution", "err", "empty")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgMalformed})
		return
	}

	if err := s.verifier.Verify(sol); err != nil {
		log.Debug("pow failed", "reason", err.Error())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msgRejected})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

type contactRequest struct {
	Name    string `json:"name" form:"name" binding:"required,max=200"`
	Email   string `json:"email" form:"email" binding:"required,email,max=320"`
	Message string `json:"message" form:"message" binding:"required,max=5000"`
}

func (s *Server) contact(c *gin.Context) {
	log := logFrom(c, s.log)

	var req contactRequest
	var err error
	if isJSON(c) {
		err = c.ShouldBindBodyWith(&req, binding.JSON)
	} else {
		err = c.ShouldBind(&req)
	}
	if err != nil {
		log.Debug("bad submission", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidSubmission})
		return
	}

	sub, err := s.inbox.Submit(c.Request.Context(), entity.Submission{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Message: req.Message,
	})
	if err != nil {
		log.Error("submission store failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	log.Info("submission accepted", "id", sub.ID)
	c.JSON(http.StatusCreated, gin.H{"id": sub.ID})
}

func isJSON(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEJSON
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
)

type GenerateTextRequest struct {
	Prompt      string `json:"prompt"`
	ContentType string `json:"content_type"`
	Tone        string `json:"tone"`
	Length      string `json:"length"`
	Language    string `json:"language"`
}

func (s *Server) GenerateText(c *gin.Context) {
	var req GenerateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.Set("service_type", string(catalogdomain.ServiceTextWriter))

	output, err := s.genSvc.Generate(c.Request.Context(), ownerID(c), generationdomain.GenerateRequest{
		Prompt:      req.Prompt,
		ContentType: generationdomain.ContentType(req.ContentType),
		Tone:        generationdomain.Tone(req.Tone),
		Length:      generationdomain.Length(req.Length),
		Language:    req.Language,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, output)
}

func (s *Server) GetOptions(c *gin.Context) {
	c.JSON(http.StatusOK, s.genSvc.Options(c.Request.Context()))
}

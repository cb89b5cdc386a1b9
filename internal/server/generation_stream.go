package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
)

// GenerateTextStream runs a metered generation as a server-sent event
// stream. Quota denials happen before the first byte and surface as a
// regular JSON error response, never as a partial stream.
func (s *Server) GenerateTextStream(c *gin.Context) {
	var req GenerateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.Set("service_type", string(catalogdomain.ServiceTextWriter))

	events, err := s.genSvc.GenerateStream(c.Request.Context(), ownerID(c), generationdomain.GenerateRequest{
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

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			if err := writeStreamEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w io.Writer, event generationdomain.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/scribehq/scribe/internal/subscription/domain"
)

func (s *Server) StartTrial(c *gin.Context) {
	trial, err := s.subSvc.StartTrial(c.Request.Context(), subscriptiondomain.StartTrialRequest{
		OwnerID: ownerID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, trial)
}

func (s *Server) UpgradeSubscription(c *gin.Context) {
	var req subscriptiondomain.UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.OwnerID = ownerID(c)

	sub, err := s.subSvc.Upgrade(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	sub, err := s.subSvc.Cancel(c.Request.Context(), subscriptiondomain.CancelRequest{
		OwnerID: ownerID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (s *Server) GetSubscriptionStatus(c *gin.Context) {
	status, err := s.subSvc.Status(c.Request.Context(), ownerID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

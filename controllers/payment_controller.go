package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce-backend/middlewares"
	"commerce-backend/models"
	"commerce-backend/services"
)

type PaymentController struct {
	svc *services.PaymentService
}

func NewPaymentController(svc *services.PaymentService) *PaymentController {
	return &PaymentController{svc: svc}
}

func (ctl *PaymentController) CreateIntent(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordPaymentOperation("create_intent", ok)
	}()

	var req models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := ctl.svc.CreateIntent(c.Request.Context(), req.OrderID, req.Method, middlewares.GetRequester(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (ctl *PaymentController) Confirm(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordPaymentOperation("confirm", ok)
	}()

	result, err := ctl.svc.Confirm(c.Request.Context(), c.Param("id"), middlewares.GetRequester(c))
	if err != nil {
		respondError(c, err)
		return
	}
	// A decline is a 200 with success=false; the customer may retry.
	c.JSON(http.StatusOK, result)
}

func (ctl *PaymentController) Cancel(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordPaymentOperation("cancel", ok)
	}()

	result, err := ctl.svc.Cancel(c.Request.Context(), c.Param("id"), middlewares.GetRequester(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

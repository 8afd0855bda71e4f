package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
	"github.com/rullmann/portfolio-now-sub006/internal/services"
)

// ActionHandler handles corporate action endpoints
type ActionHandler struct {
	actionSvc *services.ActionService
}

// NewActionHandler creates a new ActionHandler
func NewActionHandler(actionSvc *services.ActionService) *ActionHandler {
	return &ActionHandler{
		actionSvc: actionSvc,
	}
}

func splitRequest(p models.SplitParams) models.SplitRequest {
	return models.SplitRequest{
		SecurityID:    p.SecurityID,
		EffectiveDate: p.EffectiveDate.Time,
		RatioFrom:     p.RatioFrom,
		RatioTo:       p.RatioTo,
		AdjustPrices:  p.AdjustPrices,
		AdjustFifo:    p.AdjustFifo,
		Expect:        p.Expect,
	}
}

// PreviewSplit handles POST /corporate-actions/split/preview
func (h *ActionHandler) PreviewSplit(c *gin.Context) {
	var params models.SplitParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err.Error())
		return
	}

	preview, err := h.actionSvc.PreviewStockSplit(c.Request.Context(), splitRequest(params))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// ApplySplit handles POST /corporate-actions/split/apply
func (h *ActionHandler) ApplySplit(c *gin.Context) {
	var params models.SplitParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.actionSvc.ApplyStockSplit(c.Request.Context(), splitRequest(params))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UndoSplit handles POST /corporate-actions/split/undo
func (h *ActionHandler) UndoSplit(c *gin.Context) {
	var params models.SplitParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.actionSvc.UndoStockSplit(c.Request.Context(), splitRequest(params))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func mergerRequest(p models.MergerParams) (models.MergerRequest, error) {
	ratio, err := numeric.RatioFromDecimal(p.ShareRatio)
	if err != nil {
		return models.MergerRequest{}, err
	}
	return models.MergerRequest{
		SourceSecurityID: p.SourceSecurityID,
		TargetSecurityID: p.TargetSecurityID,
		EffectiveDate:    p.EffectiveDate.Time,
		ShareRatio:       ratio,
		CashPerShare:     numeric.Money(p.CashPerShare),
		CashCurrency:     p.CashCurrency,
		Expect:           p.Expect,
	}, nil
}

// PreviewMerger handles POST /corporate-actions/merger/preview
func (h *ActionHandler) PreviewMerger(c *gin.Context) {
	var params models.MergerParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := mergerRequest(params)
	if err != nil {
		writeError(c, err)
		return
	}

	preview, err := h.actionSvc.PreviewMerger(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// ApplyMerger handles POST /corporate-actions/merger/apply
func (h *ActionHandler) ApplyMerger(c *gin.Context) {
	var params models.MergerParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := mergerRequest(params)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.actionSvc.ApplyMerger(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApplySpinOff handles POST /corporate-actions/spinoff/apply
func (h *ActionHandler) ApplySpinOff(c *gin.Context) {
	var params models.SpinOffParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err.Error())
		return
	}

	dist, err := numeric.RatioFromDecimal(params.DistributionRatio)
	if err != nil {
		writeError(c, err)
		return
	}
	alloc, err := numeric.RatioFromDecimal(params.BasisAllocation)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.actionSvc.ApplySpinOff(c.Request.Context(), models.SpinOffRequest{
		ParentSecurityID:  params.ParentSecurityID,
		NewSecurityID:     params.NewSecurityID,
		EffectiveDate:     params.EffectiveDate.Time,
		DistributionRatio: dist,
		BasisAllocation:   alloc,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

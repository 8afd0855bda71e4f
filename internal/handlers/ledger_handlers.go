package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/services"
)

// LedgerHandler handles holdings, lot and rebuild endpoints
type LedgerHandler struct {
	ledgerSvc *services.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerSvc *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerSvc: ledgerSvc,
	}
}

// Holdings handles GET /portfolios/:id/holdings
func (h *LedgerHandler) Holdings(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid portfolio ID")
		return
	}

	holdings, err := h.ledgerSvc.Holdings(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HoldingsResponse{
		PortfolioID: id,
		Holdings:    holdings,
	})
}

// Lots handles GET /securities/:id/lots
func (h *LedgerHandler) Lots(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid security ID")
		return
	}

	lots, err := h.ledgerSvc.LotsForSecurity(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LotsResponse{
		SecurityID: id,
		Lots:       lots,
	})
}

// RebuildLots handles POST /maintenance/rebuild-lots. An empty or absent body
// rebuilds every security.
func (h *LedgerHandler) RebuildLots(c *gin.Context) {
	var params models.RebuildParams
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	report, err := h.ledgerSvc.Rebuild(c.Request.Context(), params.SecurityIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

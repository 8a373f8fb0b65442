package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const saleLockTTL = 30 * time.Second

// CreateSaleRequest represents a checkout request. Items are processed in order.
type CreateSaleRequest struct {
	CustomerID string            `json:"customer_id" binding:"required"`
	Items      []SaleItemRequest `json:"items" binding:"required,dive"`
}

// SaleItemRequest represents one cart line
type SaleItemRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

// SkippedLineResponse explains why a cart line was dropped
type SkippedLineResponse struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// SaleResponse is returned for a completed sale
type SaleResponse struct {
	Transaction models.Transaction    `json:"transaction"`
	Skipped     []SkippedLineResponse `json:"skipped"`
	Receipt     string                `json:"receipt"`
}

func (h *Handler) createSale(c *gin.Context) {
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	key := c.GetHeader("Idempotency-Key")

	if key != "" && h.idempotency != nil {
		if tx, ok := h.replayedSale(c, key); ok {
			writeReplay(c, tx)
			return
		}

		acquired, err := h.idempotency.AcquireLock(ctx, "sale:"+key, saleLockTTL)
		if err != nil {
			h.logger.Warn("Idempotency lock unavailable, continuing without it", zap.Error(err))
		} else if !acquired {
			c.JSON(http.StatusConflict, gin.H{"error": "A sale with this Idempotency-Key is in progress"})
			return
		} else {
			defer func() {
				if err := h.idempotency.ReleaseLock(ctx, "sale:"+key); err != nil {
					h.logger.Warn("Failed to release idempotency lock", zap.Error(err))
				}
			}()

			// the previous holder may have recorded the sale since the first lookup
			if tx, ok := h.replayedSale(c, key); ok {
				writeReplay(c, tx)
				return
			}
		}
	}

	cart := make(service.Cart, 0, len(req.Items))
	for _, item := range req.Items {
		cart = append(cart, service.CartLine{ItemID: item.ItemID, Quantity: item.Quantity})
	}

	result, err := h.ledger.ProcessSale(ctx, req.CustomerID, cart)
	if errors.Is(err, service.ErrEmptySale) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "No valid items in the cart",
			"skipped": skippedResponse(result),
		})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	tx := *result.Transaction
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.RememberSale(ctx, key, h.saleRef(tx.ID), h.idempotencyTTL); err != nil {
			h.logger.Error("Failed to store idempotency key",
				zap.String("idempotency_key", key),
				zap.Int64("transaction_id", tx.ID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, SaleResponse{
		Transaction: tx,
		Skipped:     skippedResponse(result),
		Receipt:     service.Receipt(tx),
	})
}

// saleRef ties a transaction id to this process; ids restart after a restart
// because transactions are not persisted.
func (h *Handler) saleRef(id int64) string {
	return h.bootID + ":" + strconv.FormatInt(id, 10)
}

func (h *Handler) replayedSale(c *gin.Context, key string) (models.Transaction, bool) {
	ref, found, err := h.idempotency.LookupSale(c.Request.Context(), key)
	if err != nil {
		h.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return models.Transaction{}, false
	}
	if !found {
		return models.Transaction{}, false
	}

	boot, idStr, ok := strings.Cut(ref, ":")
	if !ok || boot != h.bootID {
		return models.Transaction{}, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return models.Transaction{}, false
	}

	tx, err := h.ledger.GetTransaction(id)
	if err != nil {
		return models.Transaction{}, false
	}
	h.logger.Info("Duplicate sale request detected",
		zap.String("idempotency_key", key),
		zap.Int64("transaction_id", id))
	return tx, true
}

func writeReplay(c *gin.Context, tx models.Transaction) {
	c.Header("Idempotent-Replayed", "true")
	c.JSON(http.StatusOK, SaleResponse{Transaction: tx, Skipped: []SkippedLineResponse{}, Receipt: service.Receipt(tx)})
}

func skippedResponse(result *service.SaleResult) []SkippedLineResponse {
	out := make([]SkippedLineResponse, 0)
	if result == nil {
		return out
	}
	for _, s := range result.Skipped {
		out = append(out, SkippedLineResponse{
			ItemID:   s.ItemID,
			Quantity: s.Quantity,
			Reason:   s.Reason.Error(),
		})
	}
	return out
}

func (h *Handler) listSales(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transactions": h.ledger.Transactions()})
}

func (h *Handler) transactionFromParam(c *gin.Context) (models.Transaction, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return models.Transaction{}, false
	}

	tx, err := h.ledger.GetTransaction(id)
	if err != nil {
		writeError(c, err)
		return models.Transaction{}, false
	}
	return tx, true
}

func (h *Handler) getSale(c *gin.Context) {
	if tx, ok := h.transactionFromParam(c); ok {
		c.JSON(http.StatusOK, tx)
	}
}

func (h *Handler) getReceipt(c *gin.Context) {
	if tx, ok := h.transactionFromParam(c); ok {
		c.String(http.StatusOK, service.Receipt(tx))
	}
}

// salesReport returns JSON by default and plain text with ?format=text
func (h *Handler) salesReport(c *gin.Context) {
	report := h.ledger.SalesReport()

	if c.Query("format") == "text" {
		c.String(http.StatusOK, report.String())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"empty": report.Empty(),
		"rows":  report.Rows,
		"text":  report.String(),
	})
}

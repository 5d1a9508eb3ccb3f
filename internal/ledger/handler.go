package ledger

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/HilmiKilavuz/EcoScan/internal/auth"
)

type Handler struct {
	repo *Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		repo: NewRepository(db),
	}
}

// GetBalance godoc
// @Summary      Current point balance
// @Description  Returns the balance derived from the transaction log.
// @Tags         points
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /points/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	total, err := h.repo.GetUserTotal(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total_points": total})
}

// ListTransactions godoc
// @Summary      Point transaction history
// @Description  Returns the user's point transactions, newest first.
// @Tags         points
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of entries"
// @Success      200    {array}   Transaction
// @Failure      500    {object}  gin.H
// @Router       /points/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	txs, err := h.repo.GetUserTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

package reward

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/HilmiKilavuz/EcoScan/internal/auth"
)

type Handler struct {
	repo    *Repository
	service *Service
}

func NewHandler(db *sqlx.DB, service *Service) *Handler {
	return &Handler{
		repo:    NewRepository(db),
		service: service,
	}
}

// ListRewards godoc
// @Summary      List rewards
// @Description  Returns the whole catalog ordered by required points.
// @Tags         rewards
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Reward
// @Failure      500  {object}  gin.H
// @Router       /rewards [get]
func (h *Handler) ListRewards(c *gin.Context) {
	rewards, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rewards"})
		return
	}

	c.JSON(http.StatusOK, rewards)
}

// ListAvailable godoc
// @Summary      List available rewards
// @Tags         rewards
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Reward
// @Failure      500  {object}  gin.H
// @Router       /rewards/available [get]
func (h *Handler) ListAvailable(c *gin.Context) {
	rewards, err := h.repo.GetAvailable(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rewards"})
		return
	}

	c.JSON(http.StatusOK, rewards)
}

// Redeem godoc
// @Summary      Redeem reward
// @Description  Exchanges points for the given reward.
// @Tags         rewards
// @Security     BearerAuth
// @Produce      json
// @Param        rewardID  path      int  true  "Reward ID"
// @Success      201       {object}  Redemption
// @Failure      400       {object}  gin.H
// @Failure      404       {object}  gin.H
// @Failure      409       {object}  gin.H
// @Failure      500       {object}  gin.H
// @Router       /rewards/{rewardID}/redeem [post]
func (h *Handler) Redeem(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rewardIDStr := c.Param("rewardID")
	rewardID, err := strconv.Atoi(rewardIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reward ID"})
		return
	}

	redemption, err := h.service.Redeem(c.Request.Context(), userID, rewardID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRewardNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Reward not found"})
		case errors.Is(err, ErrRewardUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "Reward is not available right now"})
		case errors.Is(err, ErrInsufficientPoints):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Not enough points for this reward"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem reward"})
		}
		return
	}

	c.JSON(http.StatusCreated, redemption)
}

// ListMyRedemptions godoc
// @Summary      Redemption history
// @Tags         rewards
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of entries"
// @Success      200    {array}   Redemption
// @Failure      500    {object}  gin.H
// @Router       /redemptions [get]
func (h *Handler) ListMyRedemptions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	redemptions, err := h.service.GetUserRedemptions(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch redemptions"})
		return
	}

	c.JSON(http.StatusOK, redemptions)
}

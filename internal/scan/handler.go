package scan

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/HilmiKilavuz/EcoScan/internal/api"
	"github.com/HilmiKilavuz/EcoScan/internal/auth"
	"github.com/HilmiKilavuz/EcoScan/internal/blob"
)

// 10 MB cap for proof images.
const maxImageSize = 10 << 20

type Handler struct {
	service    *Service
	aggregator string
}

func NewHandler(service *Service, aggregator string) *Handler {
	return &Handler{
		service:    service,
		aggregator: aggregator,
	}
}

// Submit godoc
// @Summary      Submit waste scan
// @Description  Classifies the uploaded image, records the scan and awards points.
// @Tags         scans
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        image  formData  file  true  "Waste photo"
// @Success      201    {object}  SubmitResult
// @Failure      400    {object}  gin.H
// @Failure      429    {object}  gin.H
// @Failure      502    {object}  gin.H
// @Router       /scans [post]
func (h *Handler) Submit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "image file is required"})
		return
	}
	if fileHeader.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "image is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "failed to read image"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil || len(image) == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "failed to read image"})
		return
	}

	result, err := h.service.Submit(c.Request.Context(), userID, image, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, ErrDailyLimitExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Daily scan limit reached, try again tomorrow"})
		case errors.Is(err, ErrClassificationFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Classification failed, please retake the photo"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process scan"})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// History godoc
// @Summary      Scan history
// @Description  Returns the user's scans, newest first.
// @Tags         scans
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of scans"
// @Success      200    {array}   gin.H
// @Failure      500    {object}  gin.H
// @Router       /scans [get]
func (h *Handler) History(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	scans, err := h.service.GetHistory(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch scans"})
		return
	}

	out := make([]gin.H, 0, len(scans))
	for _, s := range scans {
		entry := gin.H{"scan": s}
		if s.BlobID != nil {
			entry["blob_url"] = blob.BlobURL(h.aggregator, *s.BlobID)
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, out)
}

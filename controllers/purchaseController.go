package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/heytrack/purchasing_backend/models"
	"github.com/heytrack/purchasing_backend/utils"
	"github.com/heytrack/purchasing_backend/workflow"
)

// PurchaseController exposes the purchase lifecycle over REST. All handlers
// assume the UserScope middleware already put the owner id on the request
// context.
type PurchaseController struct {
	Workflow *workflow.PurchaseWorkflow
}

func NewPurchaseController() *PurchaseController {
	return &PurchaseController{Workflow: workflow.NewPurchaseWorkflow()}
}

func (pc *PurchaseController) RegisterRoutes(router gin.IRouter) {
	purchases := router.Group("/purchases")
	purchases.GET("", pc.List)
	purchases.POST("", pc.Create)
	purchases.GET("/stats", pc.Stats)
	purchases.GET("/search", pc.Search)
	purchases.POST("/bulk-delete", pc.BulkDelete)
	purchases.GET("/:id", pc.Get)
	purchases.PUT("/:id", pc.Update)
	purchases.DELETE("/:id", pc.Delete)
	purchases.PATCH("/:id/status", pc.SetStatus)
}

// writeError maps workflow errors to HTTP responses. Validation problems and
// partial batch failures keep their structured payloads; sync failures
// additionally report whether the row was rolled back.
func writeError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Validasi gagal",
			"errors":   validationErr.Errors,
			"warnings": validationErr.Warnings,
		})
		return
	}

	var syncErr *utils.SyncError
	if errors.As(err, &syncErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      syncErr.Error(),
			"rolledBack": syncErr.RolledBack,
		})
		return
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validasi gagal", "fields": utils.ProcessValidationErrors(err)})
		return
	}

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Pembelian tidak ditemukan"})
	case errors.Is(err, utils.ErrorOperationInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "Operasi lain untuk pembelian ini sedang berjalan"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (pc *PurchaseController) List(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if startStr := c.Query("start"); startStr != "" {
		start, perr := time.Parse("2006-01-02", startStr)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Format tanggal start tidak valid"})
			return
		}
		end := time.Now()
		if endStr := c.Query("end"); endStr != "" {
			end, perr = time.Parse("2006-01-02", endStr)
			if perr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Format tanggal end tidak valid"})
				return
			}
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		purchases, err := models.GetPurchasesByDateRange(ctx, userId, start, end)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": purchases})
		return
	}

	purchases, err := models.GetPurchases(ctx, userId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": purchases})
}

func (pc *PurchaseController) Get(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	purchase, err := models.GetPurchase(ctx, userId, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": purchase})
}

func (pc *PurchaseController) Create(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var input models.NewPurchase
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, err)
		return
	}

	purchase, warnings, err := pc.Workflow.Create(ctx, userId, &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": purchase, "warnings": warnings})
}

func (pc *PurchaseController) Update(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var input models.UpdatePurchaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, err)
		return
	}

	purchase, warnings, err := pc.Workflow.Update(ctx, userId, c.Param("id"), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": purchase, "warnings": warnings})
}

type setStatusInput struct {
	Status models.PurchaseStatus `json:"status" binding:"required"`
}

func (pc *PurchaseController) SetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var input setStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, err)
		return
	}

	result, err := pc.Workflow.SetStatus(ctx, userId, c.Param("id"), input.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (pc *PurchaseController) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := pc.Workflow.Delete(ctx, userId, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pembelian berhasil dihapus"})
}

type bulkDeleteInput struct {
	Ids []string `json:"ids" binding:"required,min=1"`
}

func (pc *PurchaseController) BulkDelete(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var input bulkDeleteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, err)
		return
	}

	result, err := pc.Workflow.BulkDelete(ctx, userId, input.Ids)
	if err != nil {
		var partial *utils.PartialBatchFailure
		if errors.As(err, &partial) {
			// Partial success: report both sides with 207.
			c.JSON(http.StatusMultiStatus, gin.H{
				"message": partial.Error(),
				"data":    result,
			})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (pc *PurchaseController) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if cached, ok := workflow.GetCachedPurchaseStats(userId); ok {
		c.JSON(http.StatusOK, gin.H{"data": cached, "cached": true})
		return
	}

	stats, err := models.GetPurchaseStats(ctx, userId)
	if err != nil {
		writeError(c, err)
		return
	}
	workflow.SetCachedPurchaseStats(userId, stats)
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (pc *PurchaseController) Search(c *gin.Context) {
	ctx := c.Request.Context()
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parameter q wajib diisi"})
		return
	}
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		limit = utils.AtoiOrZero(limitStr)
	}

	purchases, err := models.SearchPurchases(ctx, userId, query, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": purchases})
}

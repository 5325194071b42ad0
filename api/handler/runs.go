package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vgascout/models"
)

// GetRun returns a handler for GET /api/v1/runs/:id.
func GetRun(runs Runs) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := runs.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, nil, nil)
			return
		}
		c.JSON(http.StatusOK, models.RunResponse{Success: true, Run: run})
	}
}

// ListRuns returns a handler for GET /api/v1/runs?limit=N.
// Newest runs come first; limit defaults to 20.
func ListRuns(runs Runs) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q models.RunListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, models.RunListResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		list, err := runs.List(c.Request.Context(), q.Limit)
		if err != nil {
			var scrapeErr *models.ScrapeError
			if !errors.As(err, &scrapeErr) {
				scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
			}
			c.JSON(mapErrorToStatus(scrapeErr), models.RunListResponse{
				Success: false,
				Error:   scrapeErr.ToDetail(),
			})
			return
		}
		c.JSON(http.StatusOK, models.RunListResponse{Success: true, Runs: list})
	}
}

package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	availabilityapp "boxstand/internal/app/handlers/availability"
)

type AvailabilityHandler struct {
	Queries *availabilityapp.Handler
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	start, end, ok := parseWindow(c)
	if !ok {
		return
	}
	result, err := h.Queries.Check(c.Request.Context(), availabilityapp.CheckAvailabilityQuery{
		BoxID: c.Param("id"),
		Start: start,
		End:   end,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Rank(c *gin.Context) {
	start, end, ok := parseWindow(c)
	if !ok {
		return
	}
	result, err := h.Queries.Rank(c.Request.Context(), availabilityapp.RankBoxesQuery{
		StandID: c.Param("id"),
		Start:   start,
		End:     end,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"boxes": result})
}

func parseWindow(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start: " + err.Error()})
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end: " + err.Error()})
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end before start"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

var _ AvailabilityHTTP = AvailabilityHandler{}

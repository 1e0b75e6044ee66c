package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "boxstand/internal/app/handlers/booking"
	"boxstand/internal/infra/obs"
)

type MaintenanceHandler struct {
	Sync *bookingapp.SyncStatusesHandler
}

func (h MaintenanceHandler) SyncStatuses(c *gin.Context) {
	result, err := h.Sync.Handle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	obs.AddStatusTransitions(float64(result.Applied))
	c.JSON(http.StatusOK, result)
}

var _ MaintenanceHTTP = MaintenanceHandler{}

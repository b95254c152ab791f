package handlers

import (
	"net/http"

	bookingRepo "salescompagent/database/repository/booking"
	sessionArchiveRepo "salescompagent/database/repository/sessionarchive"
	"salescompagent/utils"

	"github.com/gin-gonic/gin"
)

// RecordsHandler serves archived sessions and booking records.
type RecordsHandler struct {
	Archive  sessionArchiveRepo.SessionArchiveRepository
	Bookings bookingRepo.BookingRepository
}

func NewRecordsHandler(archive sessionArchiveRepo.SessionArchiveRepository, bookings bookingRepo.BookingRepository) *RecordsHandler {
	return &RecordsHandler{Archive: archive, Bookings: bookings}
}

// GetArchivedSession returns a terminal session by ID.
func (h *RecordsHandler) GetArchivedSession(c *gin.Context) {
	id := c.Param("id")
	session, err := h.Archive.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch session", err.Error())
		return
	}
	if session == nil {
		utils.JSONError(c, http.StatusNotFound, "session not found", id)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetBooking returns a booking record by ID.
func (h *RecordsHandler) GetBooking(c *gin.Context) {
	id := c.Param("id")
	booking, err := h.Bookings.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch booking", err.Error())
		return
	}
	if booking == nil {
		utils.JSONError(c, http.StatusNotFound, "booking not found", id)
		return
	}
	c.JSON(http.StatusOK, booking)
}

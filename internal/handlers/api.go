package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"profitpool/internal/allocation"
	"profitpool/internal/handlers/business"
	"profitpool/internal/models"
	"profitpool/internal/repository"
)

// defaultWindowDays is the length of a query range when start_date is omitted.
const defaultWindowDays = 30

// API holds the dependencies of the HTTP handlers.
type API struct {
	funds *business.FundManager
	store *repository.Store
}

func New(funds *business.FundManager, store *repository.Store) *API {
	return &API{funds: funds, store: store}
}

// respondError maps domain errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, business.ErrOwnerImmutable), errors.Is(err, business.ErrNoPending):
		status = http.StatusConflict
	case errors.Is(err, business.ErrInvalidAmount),
		errors.Is(err, business.ErrNameRequired),
		errors.Is(err, allocation.ErrInvalidRange),
		errors.Is(err, allocation.ErrRangeTooLong):
		status = http.StatusBadRequest
	case allocation.IsInvalidInput(err):
		status = http.StatusUnprocessableEntity
	case allocation.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// queryRange reads start_date and end_date, defaulting to the last
// defaultWindowDays days ending today.
func (h *API) queryRange(c *gin.Context) (models.DateRange, bool) {
	r := models.DateRange{End: h.funds.Today()}
	if s := c.Query("end_date"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date format"})
			return r, false
		}
		r.End = d
	}
	r.Start = r.End.AddDays(-defaultWindowDays + 1)
	if s := c.Query("start_date"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date format"})
			return r, false
		}
		r.Start = d
	}
	if r.End.Before(r.Start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date is after end_date"})
		return r, false
	}
	return r, true
}

package projection

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httperr "github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/errors"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/store"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/accounts", s.HandleAccounts)
	r.GET("/v1/windows/:handle", s.HandleWindow)
	r.GET("/v1/summary", s.HandleSummary)
	r.GET("/v1/rankings", s.HandleRankings)
	r.GET("/v1/rollups/:store", s.HandleRollup)
}

// HandleAccounts handles GET /v1/accounts
func (s *Service) HandleAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, AccountsResponse{Accounts: s.Accounts()})
}

// HandleWindow handles GET /v1/windows/:handle
// Query parameters: granularity, date
func (s *Service) HandleWindow(c *gin.Context) {
	resp, err := s.Window(c.Request.Context(), c.Param("handle"),
		c.Query("granularity"), c.Query("date"))
	if err != nil {
		s.writeError(c, err, "Failed to resolve window")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleSummary handles GET /v1/summary
// Query parameters: granularity, date
func (s *Service) HandleSummary(c *gin.Context) {
	resp, err := s.Summary(c.Request.Context(), c.Query("granularity"), c.Query("date"))
	if err != nil {
		s.writeError(c, err, "Failed to build summary")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRankings handles GET /v1/rankings
// Query parameters: granularity, date, size
func (s *Service) HandleRankings(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid size parameter",
				Details:   raw,
			})
			return
		}
		size = n
	}

	resp, err := s.Rankings(c.Request.Context(), c.Query("granularity"), c.Query("date"), size)
	if err != nil {
		s.writeError(c, err, "Failed to build rankings")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRollup handles GET /v1/rollups/:store
func (s *Service) HandleRollup(c *gin.Context) {
	doc, err := s.Rollup(c.Request.Context(), c.Param("store"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpNotFoundError,
				Message:   "Roll-up not built yet",
			})
			return
		}
		s.writeError(c, err, "Failed to read roll-up")
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Service) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   message,
			Details:   err.Error(),
		})
	case errors.Is(err, ErrUnknownAccount):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnknownAccountError,
			Message:   message,
			Details:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   message,
			Details:   err.Error(),
		})
	}
}

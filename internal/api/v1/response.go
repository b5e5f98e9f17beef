package v1

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/types"
)

// ErrorResponse is the error envelope, re-exported for swagger annotations.
type ErrorResponse = ierr.ErrorResponse

// DataResponse is the success envelope every JSON endpoint responds with.
type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ListResponse is the success envelope for paginated listings.
type ListResponse struct {
	Success    bool                     `json:"success"`
	Data       any                      `json:"data"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// MessageResponse is the success envelope for operations with no payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, DataResponse{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, MessageResponse{Success: true, Message: message})
}

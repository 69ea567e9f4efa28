package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/cityfix-backend/internal/logger"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	HasMore bool `json:"has_more"`
}

const internalErrorMessage = "внутренняя ошибка сервера"

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Paginated(c *gin.Context, data interface{}, total, page, perPage int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Page:    page,
			PerPage: perPage,
			HasMore: page*perPage < total,
		},
	})
}

// Error отображает AppError в HTTP-ответ. Сбои хранилища и неизвестные ошибки
// логируются, а клиент получает только общее сообщение.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Log.WithError(err).WithField("path", c.FullPath()).Error("http: необработанная ошибка")
		write(c, http.StatusInternalServerError, apperror.ErrCodeInternal, internalErrorMessage)
		return
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("path", c.FullPath()).Error("http: внутренняя ошибка")
		write(c, appErr.HTTPStatus, appErr.Code, internalErrorMessage)
		return
	}

	write(c, appErr.HTTPStatus, appErr.Code, appErr.Message)
}

func BadRequest(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, apperror.ErrCodeValidation, message)
}

func NotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, apperror.ErrCodeNotFound, message)
}

func Forbidden(c *gin.Context, message string) {
	write(c, http.StatusForbidden, apperror.ErrCodeForbidden, message)
}

func write(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: string(code), Message: message},
	})
}

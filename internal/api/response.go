package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tempo/internal/logger"
)

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type APIResponse struct {
	Data  interface{}    `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *AppError      `json:"error,omitempty"`
}

func Success(data interface{}, meta map[string]any) APIResponse {
	return APIResponse{Data: data, Meta: meta}
}

func Failure(status int, msg string) APIResponse {
	return APIResponse{Error: &AppError{Code: status, Message: msg}}
}

func HandleError(c *gin.Context, log logger.Logger, err error, status int, msg string) {
	requestID := c.GetString("request_id")
	if status >= http.StatusInternalServerError {
		log.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	} else {
		log.Warnf("[request_id=%s] %s: %v", requestID, msg, err)
	}

	text := msg
	if err != nil {
		text = msg + ": " + err.Error()
	}
	c.AbortWithStatusJSON(status, Failure(status, text))
}

func HandleSuccess(c *gin.Context, log logger.Logger, status int, data interface{}, meta map[string]any) {
	log.Debugf("[request_id=%s] %s %s -> %d", c.GetString("request_id"), c.Request.Method, c.FullPath(), status)
	c.JSON(status, Success(data, meta))
}

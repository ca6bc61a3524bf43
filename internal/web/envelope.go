package web

import "github.com/gin-gonic/gin"

// Envelope is the JSON response shape shared by every route.
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondData writes a success envelope with a payload.
func RespondData(contextGin *gin.Context, httpStatus int, data interface{}) {
	contextGin.JSON(httpStatus, Envelope{Status: true, Data: data})
}

// RespondMessage writes a success envelope with a message and optional payload.
func RespondMessage(contextGin *gin.Context, httpStatus int, message string, data interface{}) {
	contextGin.JSON(httpStatus, Envelope{Status: true, Message: message, Data: data})
}

// RespondError writes a failure envelope and aborts the request chain.
func RespondError(contextGin *gin.Context, httpStatus int, message string) {
	contextGin.AbortWithStatusJSON(httpStatus, Envelope{Status: false, Message: message})
}

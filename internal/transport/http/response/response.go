package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                  = 0
	CodeBadRequest          = 40000
	CodeInvalidDocumentType = 40001
	CodeUnsupportedFile     = 40002
	CodeUnauthorized        = 40100
	CodeInvalidCredentials  = 40101
	CodeForbidden           = 40300
	CodeDocumentNotFound    = 40401
	CodeConversationMissing = 40402
	CodeInternalServer      = 50000
	CodePartialIngestion    = 50001
	CodeDependency          = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData is Error plus a payload, used when a failure still has
// something useful to report (e.g. chunks written before it stopped).
func ErrorWithData(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

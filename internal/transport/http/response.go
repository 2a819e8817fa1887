package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dermalens-server-go/internal/platform/errors"
)

// RespondError 统一的失败响应结构
func RespondError(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{
		"success": false,
		"error":   message,
	})
}

// RespondStoreError 把存储层错误映射为 404 或 500
func RespondStoreError(c *gin.Context, err error) {
	if errors.IsKind(err, errors.KindNotFound) {
		RespondError(c, http.StatusNotFound, "Not found")
		return
	}
	RespondError(c, http.StatusInternalServerError, err.Error())
}

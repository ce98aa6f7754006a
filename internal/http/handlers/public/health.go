package public

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health 存活探针，托管平台按纯文本 OK 判断
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

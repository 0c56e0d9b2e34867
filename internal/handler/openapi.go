package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/sage/docs"
)

// 문서는 런타임에 바뀌지 않으므로 한 번만 렌더링
var openAPIDoc = sync.OnceValue(func() []byte {
	docs.SwaggerInfo.Version = Version
	return []byte(docs.SwaggerInfo.ReadDoc())
})

// OpenAPIDoc - Swagger 2.0 문서 (swag)
func OpenAPIDoc(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/json; charset=utf-8", openAPIDoc())
}

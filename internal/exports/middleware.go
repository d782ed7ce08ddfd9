package exports

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealflow_backend/platform/httpkit"
)

const contextKeyID = "exportKeyID"

// APIKeyAuthMiddleware validates export API keys presented via the
// X-Export-API-Key header.
func APIKeyAuthMiddleware(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		plaintext := c.GetHeader("X-Export-API-Key")
		if plaintext == "" {
			httpkit.Error(c, http.StatusUnauthorized, "missing export API key", nil)
			c.Abort()
			return
		}

		key, err := repo.GetAPIKeyByHash(c.Request.Context(), HashKey(plaintext))
		if err != nil {
			httpkit.Error(c, http.StatusUnauthorized, "invalid export API key", nil)
			c.Abort()
			return
		}

		c.Set(contextKeyID, key.ID)
		c.Next()
	}
}

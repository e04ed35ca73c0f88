package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/example/resumehub/internal/config"
)

const defaultClientURL = "http://localhost:4200"

// CORSMiddleware returns a gin.HandlerFunc that applies the CORS policy for the web client.
// CLIENT_URL may hold a comma separated list of origins; when it is empty the local
// development client (http://localhost:4200) is allowed. Credentials are allowed,
// and the export headers (Content-Disposition, X-Export-Archive-URL) are exposed
// so the browser can read the download file name and the archive link.
func CORSMiddleware(appConfig *config.Config) gin.HandlerFunc {
	var origins []string
	if appConfig != nil {
		for _, o := range strings.Split(appConfig.ClientURL, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{defaultClientURL}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Export-Archive-URL"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// FunctionsPrefix marks the privileged function endpoints, which answer
// any origin.
const FunctionsPrefix = "/functions/"

// CORS applies the application policy (one trusted origin, credentials)
// everywhere except under FunctionsPrefix, where any origin may call with
// the function headers.
func CORS(origin string) gin.HandlerFunc {
	app := cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{requestIDHeader},
		MaxAge:           12 * time.Hour,
	})

	functions := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"authorization", "x-client-info", "apikey", "content-type"},
	})

	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, FunctionsPrefix) {
			functions(c)
			return
		}
		app(c)
	}
}

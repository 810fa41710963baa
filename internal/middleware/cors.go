package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows every origin unless prod is set, where only allowedOrigins pass.
func CORS(allowedOrigins []string, prod bool) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	switch {
	case len(allowedOrigins) > 0:
		corsConfig.AllowOrigins = allowedOrigins
		corsConfig.AllowCredentials = true
	case prod:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	default:
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowHeaders("Authorization", RequestIDHeader)
	corsConfig.AddExposeHeaders(RequestIDHeader, "Content-Disposition")
	return cors.New(corsConfig)
}

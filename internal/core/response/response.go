package response

import (
	"net/http"

	custom_error "aanganwadi/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Error aborts with the status matching err and a JSON body in the shape every
// handler returns: {"error": message, "details": ..., "fields": [...]}.
func Error(c *gin.Context, message string, err error) {
	status := custom_error.StatusCode(err)
	body := gin.H{"error": message}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	} else {
		body["details"] = err.Error()
	}
	if fields := custom_error.Details(err); fields != nil {
		body["fields"] = fields
	}

	c.AbortWithStatusJSON(status, body)
}

// BadRequest is used for payloads gin could not bind.
func BadRequest(c *gin.Context, message string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error()})
}

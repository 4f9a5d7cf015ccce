package httpserver

import (
	"github.com/gin-gonic/gin"
)

// bindRequest binds the JSON body (if any), query parameters, and URI
// parameters onto v, in that order. A later source overwrites any field it
// also carries and leaves the other fields as an earlier source set them.
func (s *Service) bindRequest(c *gin.Context, v any) error {
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(v); err != nil {
			return err
		}
	}
	if err := c.ShouldBindQuery(v); err != nil {
		return err
	}
	return c.ShouldBindUri(v)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Karan-0412/nabha/internal/middleware"
	"github.com/Karan-0412/nabha/internal/model"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/httputil"
	"github.com/Karan-0412/nabha/pkg/validator"
)

var validate = validator.New()

// BaseHandler carries the helpers every resource handler shares.
type BaseHandler struct{}

// Bind decodes the JSON body into obj and answers 400 on failure.
func (h *BaseHandler) Bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Fail(c, apperrors.BadRequest("invalid request body: "+err.Error(), err))
		return false
	}
	return true
}

// BindAndValidate is Bind followed by the validate tags of obj, for requests
// whose service does not validate them itself.
func (h *BaseHandler) BindAndValidate(c *gin.Context, obj interface{}) bool {
	if !h.Bind(c, obj) {
		return false
	}
	if err := validate.Validate(obj); err != nil {
		h.Fail(c, apperrors.BadRequest(err.Error(), err))
		return false
	}
	return true
}

// Fail records err for the error middleware and renders it.
func (h *BaseHandler) Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	httputil.RespondWithError(c, err)
}

// Caller returns the identity set by the identity middleware.
func (h *BaseHandler) Caller(c *gin.Context) (model.Identity, bool) {
	return middleware.GetIdentity(c)
}

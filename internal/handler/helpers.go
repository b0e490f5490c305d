package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/errcode"
	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrUnknownChunk):
		response.Error(c, errcode.ErrUnknownChunk, "unknown chunk id")
	case errors.Is(err, appErr.ErrEmptyDocument):
		response.Error(c, errcode.ErrEmptyDocument, "document is empty")
	case errors.Is(err, appErr.ErrUnknownStrategy):
		response.Error(c, errcode.ErrUnknownStrategy, "unknown chunking strategy")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

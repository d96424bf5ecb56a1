// Package echoapi maps errors returned by echo handlers onto the api envelope.
package echoapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/next-trace/scg-contracts/contract/api"
	"github.com/next-trace/scg-contracts/contract/apperror"
	berr "github.com/next-trace/scg-contracts/contract/errors"
)

// HTTPErrorHandler returns an echo.HTTPErrorHandler writing api.Response error envelopes.
// Business errors keep their code and status; framework errors map to global codes;
// anything else becomes GLOBAL_001 with status 500. A nil logger discards logs.
func HTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		req := c.Request()
		path := req.URL.Path
		detail := Detail(err, path)

		if detail.Status >= http.StatusInternalServerError {
			logger.ErrorContext(req.Context(), "unhandled request error",
				"path", path, "code", detail.Code, "err", err)
		} else {
			logger.WarnContext(req.Context(), "request failed",
				"path", path, "code", detail.Code, "err", err)
		}

		var resp api.Response[struct{}]
		if sc := trace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
			resp = api.ErrorWithTrace[struct{}](detail, sc.TraceID().String())
		} else {
			resp = api.ErrorOf[struct{}](detail)
		}

		var werr error
		if req.Method == http.MethodHead {
			werr = c.NoContent(detail.Status)
		} else {
			werr = c.JSON(detail.Status, resp)
		}

		if werr != nil {
			logger.ErrorContext(req.Context(), "writing error response", "path", path, "err", werr)
		}
	}
}

// Detail classifies err into an ErrorDetail for path.
func Detail(err error, path string) api.ErrorDetail {
	if be, ok := apperror.As(err); ok {
		return api.ErrorDetailOf(be, path)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return httpErrorDetail(he, path)
	}

	var se *json.SyntaxError
	if errors.As(err, &se) || errors.Is(err, berr.ErrSerializationFailed) {
		return fromCode(apperror.InvalidJSONFormat, path)
	}

	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return api.NewErrorDetail(apperror.InvalidTypeValue.Code(),
			fmt.Sprintf("field %q has the wrong type", te.Field), http.StatusBadRequest, path)
	}

	if errors.Is(err, berr.ErrInvalidArgument) {
		return api.NewErrorDetail(apperror.BadRequest.Code(), err.Error(), http.StatusBadRequest, path)
	}

	return fromCode(apperror.InternalServerError, path)
}

func httpErrorDetail(he *echo.HTTPError, path string) api.ErrorDetail {
	switch he.Code {
	case http.StatusNotFound:
		return fromCode(apperror.EndpointNotFound, path)
	case http.StatusMethodNotAllowed:
		return fromCode(apperror.MethodNotAllowed, path)
	case http.StatusUnsupportedMediaType:
		return fromCode(apperror.UnsupportedMediaType, path)
	case http.StatusUnauthorized:
		return fromCode(apperror.Unauthorized, path)
	case http.StatusForbidden:
		return fromCode(apperror.Forbidden, path)
	case http.StatusBadRequest:
		msg, ok := he.Message.(string)
		if !ok || msg == "" {
			msg = apperror.BadRequest.Message()
		}

		return api.NewErrorDetail(apperror.BadRequest.Code(), msg, http.StatusBadRequest, path)
	case http.StatusServiceUnavailable:
		return fromCode(apperror.ServiceUnavailable, path)
	default:
		if he.Code >= http.StatusInternalServerError || he.Code < http.StatusBadRequest {
			return fromCode(apperror.InternalServerError, path)
		}

		return api.NewErrorDetail(apperror.BadRequest.Code(), http.StatusText(he.Code), he.Code, path)
	}
}

func fromCode(c apperror.Code, path string) api.ErrorDetail {
	return api.NewErrorDetail(c.Code(), c.Message(), c.Status(), path)
}

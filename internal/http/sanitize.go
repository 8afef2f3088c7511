package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/fyrsmithlabs/toolgate/internal/sanitize"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// maxSanitizeBody caps POST /api/v1/sanitize bodies.
const maxSanitizeBody = 1 << 20

// handleSanitize runs the sanitizer over a request body.
//
// A JSON body must be an object with a content field. A string content is
// sanitized as text; any other JSON value is sanitized as a tree. A text/plain
// body is sanitized as a single string.
func (s *Server) handleSanitize(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSanitizeBody+1))
	if err != nil {
		s.logger.Warn("reading sanitize request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(raw) > maxSanitizeBody {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body exceeds 1MB")
	}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMETextPlain) {
		return c.JSON(http.StatusOK, SanitizeResponse{Content: sanitize.String(string(raw))})
	}

	var req SanitizeRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.logger.Warn("invalid sanitize request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}

	out := sanitize.Value(req.Content)
	s.logger.Debug("sanitized content", zap.Bool("tree", isTree(req.Content)))
	return c.JSON(http.StatusOK, SanitizeResponse{Content: out})
}

func isTree(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

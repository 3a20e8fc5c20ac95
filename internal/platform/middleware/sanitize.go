package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxHeaderValueSize is the maximum allowed size for any single header value.
const maxHeaderValueSize = 8192 // 8KB

var (
	// SQL fragments are logged, not blocked: parameterized queries already
	// neutralize them and blocking would reject legitimate notes text.
	sqlPatterns = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	scriptPatterns = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize returns middleware that screens incoming requests for common
// attack patterns in the path, headers and query string. Blocked requests
// receive a 400 Bad Request.
func Sanitize() echo.MiddlewareFunc {
	return SanitizeWithLogger(zerolog.Nop())
}

// SanitizeWithLogger returns the sanitize middleware with a logger attached
// for the SQL pattern warnings.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if msg := checkPath(req.URL.Path, req.URL.RawPath); msg != "" {
				return sanitizeReject(c, msg)
			}
			if msg := checkHeaders(req.Header); msg != "" {
				return sanitizeReject(c, msg)
			}
			if msg := checkQuery(c, logger); msg != "" {
				return sanitizeReject(c, msg)
			}

			return next(c)
		}
	}
}

func checkPath(path, rawPath string) string {
	if rawPath == "" {
		rawPath = path
	}
	if containsPathTraversal(path) || containsPathTraversal(rawPath) {
		return "Path traversal detected"
	}
	if containsNullByte(path) || containsNullByte(rawPath) {
		return "Null byte injection detected"
	}
	return ""
}

func checkHeaders(headers http.Header) string {
	for name, values := range headers {
		for _, v := range values {
			if len(v) > maxHeaderValueSize {
				return "Header value exceeds maximum size: " + name
			}
			if strings.ContainsAny(v, "\r\n") {
				return "Header injection detected: " + name
			}
		}
	}
	return ""
}

func checkQuery(c echo.Context, logger zerolog.Logger) string {
	req := c.Request()
	for key, values := range req.URL.Query() {
		for _, v := range values {
			if containsNullByte(v) || containsNullByte(key) {
				return "Null byte injection detected in query parameter"
			}
			if sqlPatterns.MatchString(v) {
				logger.Warn().
					Str("param", key).
					Str("path", req.URL.Path).
					Str("remote_ip", c.RealIP()).
					Msg("potential SQL injection pattern detected in query parameter")
			}
			if scriptPatterns.MatchString(v) || scriptPatterns.MatchString(key) {
				return "Script injection detected in query parameter"
			}
		}
	}
	return ""
}

// containsPathTraversal checks for traversal sequences in raw and
// percent-encoded forms, including the double-encoded variant.
func containsPathTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

// containsNullByte checks for null bytes in raw and percent-encoded forms.
func containsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}

func sanitizeReject(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": "ValidationError", "message": message},
	})
}

// SanitizeString strips null bytes and control characters (except \n, \r, \t)
// from a value and trims surrounding whitespace. Handlers can apply it to
// free-text fields such as visit reasons and notes.
func SanitizeString(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r == '\x00' {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

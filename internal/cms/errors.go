package cms

import (
	"fmt"
	"strings"

	"github.com/cmsfix/https-migrator/internal/tree"
)

const maxErrorBody = 512

// APIError is returned for any non-2xx response
type APIError struct {
	Method     string
	Path       string
	StatusCode int

	// Codes are the DatoCMS error codes found in the body, e.g.
	// INVALID_AUTHORIZATION_HEADER or INVALID_FIELD.
	Codes []string

	// Body is the start of the raw response body
	Body string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("cms: %s %s: http %d", e.Method, e.Path, e.StatusCode)
	if len(e.Codes) > 0 {
		msg += " (" + strings.Join(e.Codes, ", ") + ")"
	}
	return msg
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Method:     method,
		Path:       path,
		StatusCode: status,
	}

	snippet := string(body)
	if len(snippet) > maxErrorBody {
		snippet = snippet[:maxErrorBody]
	}
	apiErr.Body = snippet

	// {"data": [{"type": "api_error", "attributes": {"code": "..."}}]}
	doc, err := tree.Parse(body)
	if err != nil {
		return apiErr
	}
	data, _ := doc.Get("data")
	for _, item := range data.Items() {
		attrs, _ := item.Get("attributes")
		if code, ok := attrs.Get("code"); ok && code.Kind() == tree.KindString {
			apiErr.Codes = append(apiErr.Codes, code.Str())
		}
	}

	return apiErr
}

package validators

import (
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// QueryString returns the sanitized query parameter, or an empty string.
func QueryString(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}

// RequiredQueryString is QueryString for parameters that must be present.
func RequiredQueryString(r *http.Request, key string, maxLen int) (string, error) {
	value := QueryString(r, key, maxLen)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

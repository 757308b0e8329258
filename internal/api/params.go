package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/CILXRY/f-sleepy/internal/models"
)

// parseBool accepts the spellings dashboards and old clients send.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", v)
}

// queryFlag reads an optional boolean query parameter; anything
// unparsable counts as false.
func queryFlag(r *http.Request, key string) bool {
	b, err := parseBool(r.URL.Query().Get(key))
	return err == nil && b
}

// requiredBool reads a boolean query parameter that must be present.
func requiredBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, &models.ValidationError{Field: key, Reason: "missing"}
	}
	b, err := parseBool(v)
	if err != nil {
		return false, &models.ValidationError{Field: key, Reason: err.Error()}
	}
	return b, nil
}

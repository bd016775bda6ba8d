package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
)

// PageLimit bounds the "limit" query parameter of list endpoints.
type PageLimit struct {
	Default int
	Max     int
}

// Parse returns Default when the parameter is absent and rejects values
// outside 1..Max.
func (p PageLimit) Parse(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return p.Default, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 || value > p.Max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be between 1 and "+strconv.Itoa(p.Max)).
			WithDetails(map[string]any{"field": "limit", "max": p.Max})
	}
	return value, nil
}

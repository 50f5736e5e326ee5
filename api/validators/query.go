package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
)

type number interface{ ~int | ~float64 }

func parseNumber[T number](raw string) (T, error) {
	var zero T
	switch any(zero).(type) {
	case int:
		v, err := strconv.Atoi(raw)
		return T(v), err
	default:
		v, err := strconv.ParseFloat(raw, 64)
		return T(v), err
	}
}

// queryNumber reads key as a number in [min, max]. ok is false when the
// parameter is absent.
func queryNumber[T number](r *http.Request, key string, min, max T) (value T, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return value, false, nil
	}
	value, err = parseNumber[T](raw)
	if err != nil {
		return value, true, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return value, true, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, true, nil
}

// ParseQueryInt is for optional knobs such as page size.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	v, ok, err := queryNumber(r, key, min, max)
	if err != nil {
		return 0, err
	}
	if !ok {
		return defaultVal, nil
	}
	return v, nil
}

// ParseQueryFloat is for required coordinates on GET routes.
func ParseQueryFloat(r *http.Request, key string, min, max float64) (float64, error) {
	v, ok, err := queryNumber(r, key, min, max)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").
			WithDetails(map[string]any{"field": key})
	}
	return v, nil
}

// ParseQueryBool reads an optional flag; absent means false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "query parameter must be a boolean").
			WithDetails(map[string]any{"field": key})
	}
	return v, nil
}

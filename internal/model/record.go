package model

import (
	"encoding/json"
	"fmt"
)

// Record is one row of a data type's physical table, keyed by column
// name. Besides one entry per field it always carries the system
// columns "id", "created_by" and "created_at", and list reads add
// "created_by_username"/"created_by_full_name" from the users join.
type Record map[string]any

// System column names present in every physical table. They are
// populated by the record layer and silently ignored in update payloads.
const (
	ColID        = "id"
	ColCreatedBy = "created_by"
	ColCreatedAt = "created_at"
)

// IsSystemColumn reports whether name is one of the reserved columns.
func IsSystemColumn(name string) bool {
	return name == ColID || name == ColCreatedBy || name == ColCreatedAt
}

// Coordinates is the structured value of a coordinates-kind field. It
// is stored as a JSON text document and decoded back on every read.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// InRange reports whether the pair lies within [-90,90]x[-180,180].
func (c Coordinates) InRange() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Encode serializes the pair to its storage form.
func (c Coordinates) Encode() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// DecodeCoordinates parses the stored JSON text back into the
// structured pair.
func DecodeCoordinates(s string) (Coordinates, error) {
	var c Coordinates
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Coordinates{}, err
	}
	return c, nil
}

// CoordinatesFrom normalizes the value shapes a caller may supply for a
// coordinates field: the structured pair itself, a decoded JSON object
// (map with numeric latitude/longitude), or the serialized text form.
func CoordinatesFrom(v any) (Coordinates, error) {
	switch t := v.(type) {
	case Coordinates:
		return t, nil
	case *Coordinates:
		return *t, nil
	case map[string]any:
		lat, ok1 := toFloat(t["latitude"])
		lon, ok2 := toFloat(t["longitude"])
		if !ok1 || !ok2 {
			return Coordinates{}, fmt.Errorf("coordinates object must contain numeric latitude and longitude")
		}
		return Coordinates{Latitude: lat, Longitude: lon}, nil
	case string:
		return DecodeCoordinates(t)
	case []byte:
		return DecodeCoordinates(string(t))
	default:
		return Coordinates{}, fmt.Errorf("unsupported coordinates value of type %T", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

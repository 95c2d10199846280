package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatesRoundTrip(t *testing.T) {
	c := Coordinates{Latitude: 42.3601, Longitude: -71.0589}
	decoded, err := DecodeCoordinates(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestCoordinatesInRange(t *testing.T) {
	cases := []struct {
		lat, lon float64
		ok       bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{-91, 0, false},
		{0, 180.5, false},
		{0, -181, false},
	}
	for _, tc := range cases {
		c := Coordinates{Latitude: tc.lat, Longitude: tc.lon}
		assert.Equal(t, tc.ok, c.InRange(), "(%v, %v)", tc.lat, tc.lon)
	}
}

func TestCoordinatesFrom(t *testing.T) {
	want := Coordinates{Latitude: 1.5, Longitude: 2.5}

	got, err := CoordinatesFrom(want)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = CoordinatesFrom(map[string]any{"latitude": 1.5, "longitude": 2.5})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = CoordinatesFrom(`{"latitude": 1.5, "longitude": 2.5}`)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// integer-valued members are accepted
	got, err = CoordinatesFrom(map[string]any{"latitude": 1, "longitude": int64(2)})
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 1, Longitude: 2}, got)

	_, err = CoordinatesFrom(map[string]any{"latitude": "north"})
	assert.Error(t, err)
	_, err = CoordinatesFrom("not json")
	assert.Error(t, err)
	_, err = CoordinatesFrom(42)
	assert.Error(t, err)
}

func TestFieldKindSQLType(t *testing.T) {
	assert.Equal(t, "INTEGER", KindInteger.SQLType())
	assert.Equal(t, "REAL", KindDecimal.SQLType())
	assert.Equal(t, "TIMESTAMP", KindDate.SQLType())
	assert.Equal(t, "BOOLEAN", KindBoolean.SQLType())
	for _, k := range []FieldKind{KindText, KindEnum, KindCoordinates} {
		assert.Equal(t, "TEXT", k.SQLType())
	}
}

func TestFieldKindValidAndNumeric(t *testing.T) {
	for _, k := range []FieldKind{KindText, KindInteger, KindDecimal, KindDate, KindBoolean, KindEnum, KindCoordinates} {
		assert.True(t, k.Valid())
	}
	assert.False(t, FieldKind("blob").Valid())

	assert.True(t, KindInteger.Numeric())
	assert.True(t, KindDecimal.Numeric())
	assert.False(t, KindText.Numeric())
	assert.False(t, KindBoolean.Numeric())
}

func TestIsSystemColumn(t *testing.T) {
	assert.True(t, IsSystemColumn("id"))
	assert.True(t, IsSystemColumn("created_by"))
	assert.True(t, IsSystemColumn("created_at"))
	assert.False(t, IsSystemColumn("name"))
}

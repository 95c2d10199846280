package model

// DataType is a user-defined reference table. Each data type owns a set
// of DataFields and one physical storage table named data_{ID}. The
// physical table always exists (created together with the type) even
// when the type has no fields yet.
type DataType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   int64  `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	// CreatedByUsername is populated on list reads via a join with the
	// users table; it is not a column of data_types.
	CreatedByUsername string `json:"created_by_username,omitempty"`
	// CanEdit reports whether the requesting user may write records of
	// this type. Computed per request, never persisted.
	CanEdit bool `json:"can_edit"`
}

// FieldKind enumerates the supported field value kinds. Enum and
// coordinates values are persisted as TEXT: enums as their canonical
// value string, coordinates as a JSON {latitude, longitude} document.
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindInteger     FieldKind = "integer"
	KindDecimal     FieldKind = "decimal"
	KindDate        FieldKind = "date"
	KindBoolean     FieldKind = "boolean"
	KindEnum        FieldKind = "enum"
	KindCoordinates FieldKind = "coordinates"
)

// Valid reports whether k is one of the supported kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindInteger, KindDecimal, KindDate, KindBoolean, KindEnum, KindCoordinates:
		return true
	}
	return false
}

// Numeric reports whether the kind participates in statistics
// aggregation (count/mean/min/max).
func (k FieldKind) Numeric() bool {
	return k == KindInteger || k == KindDecimal
}

// SQLType maps the kind to the SQLite column affinity used when the
// physical table is (re)built. Unknown kinds fall back to TEXT.
func (k FieldKind) SQLType() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindDecimal:
		return "REAL"
	case KindDate:
		return "TIMESTAMP"
	case KindBoolean:
		return "BOOLEAN"
	default: // text, enum, coordinates
		return "TEXT"
	}
}

// DataField is one typed column belonging to a DataType. (DataTypeID,
// FieldName) is unique. For enum fields the closed value list lives in
// enum_field_values and is loaded into EnumValues on read.
type DataField struct {
	ID              int64     `json:"id"`
	DataTypeID      int64     `json:"data_type_id"`
	FieldName       string    `json:"field_name"`
	FieldType       FieldKind `json:"field_type"`
	IsRequired      bool      `json:"is_required"`
	Description     string    `json:"description"`
	ValidationRules string    `json:"validation_rules"`
	CreatedAt       string    `json:"created_at"`
	EnumValues      []string  `json:"enum_values,omitempty"`
}

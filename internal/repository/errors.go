// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them to stable response codes. Validation and not-found conditions
// are raised immediately; ErrStorageBusy is only surfaced after the
// internal retry budget is exhausted.
package repository

import "errors"

// ErrDuplicateName is returned when creating a data type whose name is
// already taken.
var ErrDuplicateName = errors.New("data type name already exists")

// ErrDuplicateField is returned when adding a field whose name already
// exists on the same data type.
var ErrDuplicateField = errors.New("field already exists for this data type")

// ErrFieldNotFound is returned when a referenced field definition does
// not exist on the given data type.
var ErrFieldNotFound = errors.New("field not found")

// ErrTypeNotFound is returned when a referenced data type does not exist.
var ErrTypeNotFound = errors.New("data type not found")

// ErrRecordNotFound is returned when a record id does not exist in the
// type's physical table.
var ErrRecordNotFound = errors.New("record not found")

// ErrNoFields is returned when inserting a record into a data type that
// has no fields yet. Records cannot exist without at least one field.
var ErrNoFields = errors.New("data type has no fields")

// ErrNoUpdatableFields is returned when an update payload contains only
// system columns, leaving nothing to change.
var ErrNoUpdatableFields = errors.New("no updatable fields in payload")

// ErrInvalidCoordinate is returned when a coordinates value falls
// outside latitude [-90,90] or longitude [-180,180], or cannot be
// parsed into a {latitude, longitude} pair at all.
var ErrInvalidCoordinate = errors.New("invalid coordinate value")

// ErrInvalidFieldName is returned when a field name cannot be used as a
// column identifier or collides with a system column.
var ErrInvalidFieldName = errors.New("invalid field name")

// ErrPermissionDenied is returned by guard checks when the caller lacks
// the required permission on a data type.
var ErrPermissionDenied = errors.New("permission denied")

// ErrStorageBusy wraps a transient SQLITE_BUSY/SQLITE_LOCKED condition
// that persisted through the whole retry budget.
var ErrStorageBusy = errors.New("storage busy")

package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuditEvent(t *testing.T) {
	ev := NewAuditEvent(EventRecordCreated, 7)

	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, EventRecordCreated, ev.Kind)
	assert.Equal(t, int64(7), ev.UserID)

	at, err := time.Parse(time.RFC3339, ev.OccurredAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), at, 5*time.Second)

	// each event carries its own id
	assert.NotEqual(t, ev.ID, NewAuditEvent(EventRecordCreated, 7).ID)
}

func TestAuditEventJSONOmitsEmpty(t *testing.T) {
	ev := NewAuditEvent(EventTypeCreated, 1)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "record_id")
	assert.NotContains(t, string(raw), "detail")

	ev.RecordID = 9
	ev.Detail = "x"
	raw, err = json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"record_id":9`)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/datavue/internal/model"
)

// Without a Redis client every operation must be a silent no-op so the
// callers fall through to the database.
func TestCatalogDisabledWithoutClient(t *testing.T) {
	ctx := context.Background()

	for _, c := range []*Catalog{nil, NewCatalog(nil, time.Minute)} {
		_, ok := c.GetTypes(ctx, 1)
		assert.False(t, ok)
		_, ok = c.GetFields(ctx, 1)
		assert.False(t, ok)

		// none of these may panic
		c.SetTypes(ctx, 1, []model.DataType{{ID: 1, Name: "x"}})
		c.SetFields(ctx, 1, []model.DataField{{ID: 1, FieldName: "f"}})
		c.Invalidate(ctx)
	}
}

package stories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/testutil"
)

func TestSaveListDelete(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	svc := NewService(db, time.Second)
	ctx := context.Background()

	story, err := svc.Save(ctx, &f.Owner, Input{PatientID: f.Patient.ID, Title: " First walk ", Content: "Rex loved it", Mood: "happy"})
	require.NoError(t, err)
	assert.Equal(t, "First walk", story.Title)
	require.NotNil(t, story.PatientID)

	_, err = svc.Save(ctx, &f.Owner, Input{Title: "  "})
	assert.ErrorIs(t, err, apperr.Validation(""))

	_, err = svc.Save(ctx, &f.Owner, Input{PatientID: "someone-elses-pet", Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	items, err := svc.List(ctx, &f.Owner, f.Patient.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, svc.Delete(ctx, &f.Owner, story.ID))
	assert.ErrorIs(t, svc.Delete(ctx, &f.Owner, story.ID), apperr.ErrNotFound)
}

func TestSaveTimeout(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	release := make(chan struct{})
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:slow_story", func(tx *gorm.DB) {
		if tx.Statement.Table == "stories" {
			<-release
		}
	}))
	t.Cleanup(func() { close(release) })

	svc := NewService(db, 50*time.Millisecond)
	start := time.Now()
	_, err := svc.Save(context.Background(), &f.Owner, Input{Title: "slow"})
	assert.ErrorIs(t, err, apperr.ErrSaveTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

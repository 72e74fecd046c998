package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterpribes/jotakareservas1/notice"
	"github.com/walterpribes/jotakareservas1/reservation"
)

func TestNotices_ReadOnlyIsPermission(t *testing.T) {
	// GIVEN: A store whose connection refuses writes
	// WHEN: Saving and deleting notices
	// THEN: The failures are permission StorageErrors, reads still work

	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.SaveNotice(ctx, notice.Notice{ID: "n1", Title: "Escala", Content: "junho", CreatedAt: time.Now()}))

	_, err = s.db.ExecContext(ctx, `PRAGMA query_only = ON`)
	require.NoError(t, err)

	err = s.SaveNotice(ctx, notice.Notice{ID: "n2", Title: "x", Content: "y", CreatedAt: time.Now()})
	require.ErrorIs(t, err, reservation.ErrStorage)
	assert.Equal(t, reservation.KindPermission, reservation.StorageKindOf(err))

	err = s.DeleteNotice(ctx, "n1")
	assert.Equal(t, reservation.KindPermission, reservation.StorageKindOf(err))

	ns, err := s.ListNotices(ctx)
	require.NoError(t, err)
	assert.Len(t, ns, 1)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))

	err := classify("op", errors.New("UNIQUE constraint failed: clients.phone"))
	assert.Equal(t, reservation.KindIntegrity, reservation.StorageKindOf(err))

	err = classify("op", errors.New("disk I/O error"))
	assert.Equal(t, reservation.KindUnavailable, reservation.StorageKindOf(err))
}

func TestTimeLayout_TextOrderIsTimeOrder(t *testing.T) {
	whole := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC).Format(timeLayout)
	half := time.Date(2025, 6, 15, 12, 0, 0, 500_000_000, time.UTC).Format(timeLayout)

	assert.Less(t, whole, half)
	parsed, err := time.Parse(parseLayout, half)
	require.NoError(t, err)
	assert.Equal(t, 500_000_000, parsed.Nanosecond())
}

package idx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/idx"
)

func TestNewIsUniqueAndSortable(t *testing.T) {
	a := idx.New()
	b := idx.New()
	require.NotEqual(t, a, b)
	require.Less(t, a.String(), b.String())
}

func TestParse(t *testing.T) {
	id := idx.New()

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = idx.Parse("")
	require.ErrorIs(t, err, idx.ErrInvalid)
	_, err = idx.Parse("not-a-ulid")
	require.ErrorIs(t, err, idx.ErrInvalid)
}

func TestTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := idx.NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}

func TestIsZero(t *testing.T) {
	require.True(t, idx.Zero.IsZero())
	require.False(t, idx.New().IsZero())
}

package disposable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The sequence a fresh slot must walk through: empty reads fail without
// touching the destination, each published value is read exactly once, and a
// second put before any read silently replaces the first.
func TestSlotScenario(t *testing.T) {
	s := New[int]()

	v := 0
	require.False(t, s.TryReadInto(&v), "read from a fresh slot must fail")
	require.Equal(t, 0, v, "failed read must leave the destination untouched")

	require.True(t, s.TryPut(10))

	require.True(t, s.TryReadInto(&v))
	require.Equal(t, 10, v)

	v2 := 1
	require.False(t, s.TryReadInto(&v2), "the value was already consumed")
	require.Equal(t, 1, v2)

	require.True(t, s.TryPut(11))
	require.True(t, s.TryPut(11), "overwriting an unread value must succeed")

	require.True(t, s.TryReadInto(&v2))
	require.Equal(t, 11, v2)
}

func TestSlotOverwriteWins(t *testing.T) {
	s := New[string]()

	require.True(t, s.TryPut("first"))
	require.True(t, s.TryPut("second"))

	var got string
	require.True(t, s.TryReadInto(&got))
	require.Equal(t, "second", got, "only the latest write is ever visible")

	require.False(t, s.TryReadInto(&got), "the overwritten value is discarded, not queued")
}

// A held read lock must block the writer for its whole retry budget.
func TestSlotPutBlockedByReadLock(t *testing.T) {
	s := NewWithPolicy[int](0, nil)

	require.True(t, s.TryPut(7))

	l := s.TryLock()
	require.True(t, l.Locked())

	require.False(t, s.TryPut(8), "write must fail while the consumer holds the view")

	l.Unlock()

	require.True(t, s.TryPut(8))

	var v int
	require.True(t, s.TryReadInto(&v))
	require.Equal(t, 8, v)
}

// The hook runs between CAS attempts only, never after the last one.
func TestSlotYieldBetweenRetries(t *testing.T) {
	yields := 0
	s := NewWithPolicy[int](3, func() { yields++ })

	var v int
	require.False(t, s.TryReadInto(&v), "slot is empty")
	require.Equal(t, 3, yields)

	yields = 0
	single := NewWithPolicy[int](0, func() { yields++ })
	require.False(t, single.TryReadInto(&v))
	require.Equal(t, 0, yields, "a single-attempt slot never yields")
}

func TestSlotStats(t *testing.T) {
	s := NewWithPolicy[int](0, nil)

	var v int
	require.False(t, s.TryReadInto(&v))
	require.True(t, s.TryPut(1))
	require.True(t, s.TryPut(2))
	require.True(t, s.TryReadInto(&v))
	require.False(t, s.TryReadInto(&v))

	st := s.Stats()
	require.Equal(t, uint64(2), st.PutAttempts)
	require.Equal(t, uint64(0), st.PutFailed)
	require.Equal(t, uint64(1), st.Overwrites)
	require.Equal(t, uint64(3), st.ReadAttempts)
	require.Equal(t, uint64(2), st.ReadFailedEmpty)
	require.Equal(t, uint64(0), st.ReadFailedBusy)
}

func TestSlotStatsBlockedPut(t *testing.T) {
	s := NewWithPolicy[int](1, nil)

	require.True(t, s.TryPut(1))

	l := s.TryLock()
	require.True(t, l.Locked())
	require.False(t, s.TryPut(2))
	l.Unlock()

	st := s.Stats()
	require.Equal(t, uint64(2), st.PutAttempts)
	require.Equal(t, uint64(1), st.PutFailed)
	require.Equal(t, uint64(1), st.ReadAttempts)
}

package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	source string
	id     string
	ts     int64
}

func (e entry) Key() string    { return e.source + "/" + e.id }
func (e entry) SortKey() int64 { return e.ts }

func keysOf(entries []entry) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key())
	}
	return keys
}

func TestMergeSortsNewestFirst(t *testing.T) {
	a := []entry{{"a", "1", 1000}, {"a", "2", 10}}
	b := []entry{{"b", "7", 2}, {"b", "8", 5000}}

	merged := Merge(a, b)

	assert.Equal(t, []string{"b/8", "a/1", "a/2", "b/7"}, keysOf(merged))
}

func TestMergeDeduplicatesFirstWins(t *testing.T) {
	a := []entry{{"a", "1", 100}}
	b := []entry{{"a", "1", 999}, {"b", "1", 50}}

	merged := Merge(a, b)

	require.Len(t, merged, 2)
	assert.Equal(t, int64(100), merged[0].ts, "first occurrence should be kept")
	assert.Equal(t, "b/1", merged[1].Key())
}

func TestMergeStableOnEqualTimestamps(t *testing.T) {
	a := []entry{{"a", "1", 500}}
	b := []entry{{"b", "1", 500}}
	c := []entry{{"c", "1", 500}}

	assert.Equal(t, []string{"a/1", "b/1", "c/1"}, keysOf(Merge(a, b, c)))
	assert.Equal(t, []string{"c/1", "a/1", "b/1"}, keysOf(Merge(c, a, b)))
}

func TestMergeDeterministicForFixedBatches(t *testing.T) {
	batches := [][]entry{
		{{"a", "1", 30}, {"a", "2", 10}},
		{{"b", "1", 20}, {"b", "2", 10}},
		{{"c", "1", 10}},
	}
	want := keysOf(Merge(batches...))

	assert.Equal(t, []string{"a/1", "b/1", "a/2", "b/2", "c/1"}, want)

	for i := 0; i < 20; i++ {
		copied := make([][]entry, len(batches))
		for j := range batches {
			copied[j] = append([]entry(nil), batches[j]...)
		}
		assert.Equal(t, want, keysOf(Merge(copied...)))
	}
}

func TestMergeEmpty(t *testing.T) {
	merged := Merge[entry]()
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}

func TestIncorporateAppendsUnseen(t *testing.T) {
	existing := Merge([]entry{{"a", "1", 300}, {"a", "2", 100}})
	incoming := []entry{{"a", "2", 100}, {"b", "1", 200}}

	combined, err := Incorporate(existing, incoming)

	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "b/1", "a/2"}, keysOf(combined))
	assert.Len(t, existing, 2, "existing slice must not grow")
}

func TestIncorporateIdempotent(t *testing.T) {
	existing := Merge([]entry{{"a", "1", 300}, {"b", "1", 100}})

	combined, err := Incorporate(existing, existing)

	assert.ErrorIs(t, err, ErrNoNewRecords)
	assert.Equal(t, existing, combined)
}

func TestIncorporateEmptyIncoming(t *testing.T) {
	existing := []entry{{"a", "1", 1}}

	combined, err := Incorporate(existing, nil)

	assert.ErrorIs(t, err, ErrNoNewRecords)
	assert.Equal(t, existing, combined)
}

func TestIncorporateKeepsGlobalOrder(t *testing.T) {
	existing := Merge([]entry{{"a", "1", 50}, {"a", "2", 10}})
	incoming := []entry{{"b", "1", 60}, {"b", "2", 5}, {"b", "3", 50}}

	combined, err := Incorporate(existing, incoming)

	require.NoError(t, err)
	assert.Equal(t, []string{"b/1", "a/1", "b/3", "a/2", "b/2"}, keysOf(combined))
}

func TestKeySet(t *testing.T) {
	keys := keySet([]entry{{"a", "1", 1}, {"b", "2", 2}, {"a", "1", 3}}, 0)

	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "a/1")
	assert.Contains(t, keys, "b/2")
}

func TestIncorporateDropsRepeatsWithinIncoming(t *testing.T) {
	existing := []entry{{"a", "1", 10}}
	incoming := []entry{{"a", "1", 99}, {"b", "1", 20}, {"b", "1", 30}}

	combined, err := Incorporate(existing, incoming)

	require.NoError(t, err)
	assert.Equal(t, []string{"b/1", "a/1"}, keysOf(combined))
	assert.Equal(t, int64(10), combined[1].ts, "held entry must win over a later copy")
	assert.Equal(t, int64(20), combined[0].ts, "first incoming copy must win")
}

package domain

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSetPreservesInsertionOrder(t *testing.T) {
	s := NewState()
	s.Set("zebra", 1).Set("apple", 2).Set("mango", 3)

	assert.Equal(t, []string{"zebra", "apple", "mango"}, s.Keys())

	// Updating an existing key keeps its position.
	s.Set("apple", 99)
	assert.Equal(t, []string{"zebra", "apple", "mango"}, s.Keys())

	v, ok := s.Get("apple")
	require.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestStateGetMissingIsNotAnError(t *testing.T) {
	s := NewState()
	v, ok := s.Get("absent")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "fallback", s.GetOr("absent", "fallback"))
}

func TestStateTypedGetters(t *testing.T) {
	s := NewState()
	s.Set("name", "review")
	s.Set("threshold", 70.0)
	s.Set("iterations", 2)
	s.Set("done", true)

	name, ok := s.GetString("name")
	require.True(t, ok)
	assert.Equal(t, "review", name)

	// Ints widen to float64 and floats truncate to int, so JSON-decoded
	// and Go-built states behave identically.
	f, ok := s.GetFloat64("iterations")
	require.True(t, ok)
	assert.Equal(t, 2.0, f)

	i, ok := s.GetInt("threshold")
	require.True(t, ok)
	assert.Equal(t, 70, i)

	b, ok := s.GetBool("done")
	require.True(t, ok)
	assert.True(t, b)

	_, ok = s.GetString("threshold")
	assert.False(t, ok)
}

func TestStateDelete(t *testing.T) {
	s := NewState()
	s.Set("a", 1).Set("b", 2).Set("c", 3)

	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, s.Keys())
	assert.Equal(t, 2, s.Len())
}

func TestSnapshotIsDeepAndIndependent(t *testing.T) {
	s := NewState()
	s.Set("scores", map[string]any{"total": 10.0})
	s.Set("tags", []any{"a", "b"})

	snap := s.Snapshot()

	// Mutate the original's nested containers.
	scores, _ := s.Get("scores")
	scores.(map[string]any)["total"] = 99.0
	tags, _ := s.Get("tags")
	tags.([]any)[0] = "mutated"

	snapScores, _ := snap.Get("scores")
	assert.Equal(t, 10.0, snapScores.(map[string]any)["total"])
	snapTags, _ := snap.Get("tags")
	assert.Equal(t, "a", snapTags.([]any)[0])

	// And the other direction.
	snap.Set("extra", true)
	_, ok := s.Get("extra")
	assert.False(t, ok)
}

func TestFromMapIsDeterministicAndCopies(t *testing.T) {
	src := map[string]any{
		"b": []any{1.0},
		"a": map[string]any{"k": "v"},
		"c": 3,
	}
	s := FromMap(src)
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())

	src["a"].(map[string]any)["k"] = "changed"
	got, _ := s.Get("a")
	assert.Equal(t, "v", got.(map[string]any)["k"])
}

func TestFromPairsKeepsGivenOrder(t *testing.T) {
	s := FromPairs(
		Pair{Key: "zulu", Value: 1},
		Pair{Key: "alpha", Value: map[string]any{"k": "v"}},
		Pair{Key: "mike", Value: 3},
		Pair{Key: "zulu", Value: 99},
	)

	// Unlike FromMap, the caller's order is kept; the repeated key stays
	// where it first appeared and holds the last value.
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, s.Keys())
	v, ok := s.Get("zulu")
	require.True(t, ok)
	assert.Equal(t, 99, v)

	// Values are copied, not aliased.
	nested := map[string]any{"k": "v"}
	s2 := FromPairs(Pair{Key: "a", Value: nested})
	nested["k"] = "changed"
	got, _ := s2.Get("a")
	assert.Equal(t, "v", got.(map[string]any)["k"])
}

func TestStateJSONRoundTripPreservesOrder(t *testing.T) {
	s := NewState()
	s.Set("zulu", 1.5)
	s.Set("alpha", "x")
	s.Set("nested", map[string]any{"n": 1.0})
	s.Set("list", []any{1.0, "two", false})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), data[0])
	// zulu must come before alpha in the document.
	assert.Less(t, bytes.Index(data, []byte(`"zulu"`)), bytes.Index(data, []byte(`"alpha"`)))

	var back State
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"zulu", "alpha", "nested", "list"}, back.Keys())
	assert.Equal(t, s.ToMap(), back.ToMap())
}

func TestStateUnmarshalRejectsNonObject(t *testing.T) {
	var s State
	err := json.Unmarshal([]byte(`[1,2]`), &s)
	assert.Error(t, err)
}

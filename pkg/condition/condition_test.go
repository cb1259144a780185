package condition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stateflow/pkg/domain"
)

func TestCompileNumericGuard(t *testing.T) {
	pred, err := Compile("quality_score < threshold && iterations < max_iterations")
	require.NoError(t, err)

	looping := domain.NewState().
		Set("quality_score", 55.5).
		Set("threshold", 70.0).
		Set("iterations", 1).
		Set("max_iterations", 3)
	ok, err := pred(context.Background(), looping)
	require.NoError(t, err)
	assert.True(t, ok)

	done := looping.Snapshot().Set("quality_score", 82.0)
	ok, err = pred(context.Background(), done)
	require.NoError(t, err)
	assert.False(t, ok)

	exhausted := looping.Snapshot().Set("iterations", 3)
	ok, err = pred(context.Background(), exhausted)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileStringAndBool(t *testing.T) {
	state := domain.NewState().
		Set("status", "review").
		Set("approved", true)

	pred, err := Compile(`status == "review"`)
	require.NoError(t, err)
	ok, err := pred(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, ok)

	pred, err = Compile("!approved")
	require.NoError(t, err)
	ok, err = pred(context.Background(), state)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileCollectionAccess(t *testing.T) {
	state := domain.NewState().
		Set("scores", []any{5, 20}).
		Set("user", map[string]any{"name": "ada", "admin": false})

	pred, err := Compile("scores[1] > 10")
	require.NoError(t, err)
	ok, err := pred(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, ok)

	pred, err = Compile(`user.name == "ada" && !user.admin`)
	require.NoError(t, err)
	ok, err = pred(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile("score <")
	assert.Error(t, err)
}

func TestEvaluateUnknownVariable(t *testing.T) {
	pred, err := Compile("missing > 1")
	require.NoError(t, err)

	_, err = pred(context.Background(), domain.NewState().Set("present", 1))
	assert.ErrorContains(t, err, "missing")
}

func TestEvaluateNonBoolResult(t *testing.T) {
	pred, err := Compile("score + 1")
	require.NoError(t, err)

	_, err = pred(context.Background(), domain.NewState().Set("score", 10))
	assert.ErrorContains(t, err, "want bool")
}

func TestEvaluateNilState(t *testing.T) {
	pred, err := Compile("true")
	require.NoError(t, err)

	ok, err := pred(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("((") })
	assert.NotPanics(t, func() { MustCompile("a == b") })
}

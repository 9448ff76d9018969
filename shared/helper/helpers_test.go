package helper_test

import (
	"errors"
	"testing"

	"github.com/on-the-ground/saga_ive_go/shared/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTypedValueOf(t *testing.T) {
	v, err := helper.GetTypedValueOf[int](func() (any, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = helper.GetTypedValueOf[int](func() (any, error) { return "3", nil })
	assert.ErrorIs(t, err, helper.ErrUnexpectedType)

	boom := errors.New("boom")
	_, err = helper.GetTypedValueOf[int](func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestGetTypedValueOf2(t *testing.T) {
	v, ok := helper.GetTypedValueOf2[string](func() (any, bool) { return "x", true })
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = helper.GetTypedValueOf2[string](func() (any, bool) { return 1, true })
	assert.False(t, ok)

	_, ok = helper.GetTypedValueOf2[string](func() (any, bool) { return nil, false })
	assert.False(t, ok)
}

func TestSameReference(t *testing.T) {
	m := map[string]any{"a": 1}
	other := map[string]any{"a": 1}
	s := []any{1, 2}

	assert.True(t, helper.SameReference(m, m))
	assert.False(t, helper.SameReference(m, other))
	assert.True(t, helper.SameReference(s, s))
	assert.False(t, helper.SameReference(s, s[:1]))
	assert.True(t, helper.SameReference(1, 1))
	assert.False(t, helper.SameReference(1, int64(1)))
	assert.True(t, helper.SameReference(nil, nil))
	assert.False(t, helper.SameReference(nil, 0))

	type holder struct{ v any }
	assert.False(t, helper.SameReference(holder{v: m}, holder{v: m}))
}

func TestIsComparable(t *testing.T) {
	assert.True(t, helper.IsComparable(nil))
	assert.True(t, helper.IsComparable("ref"))
	assert.False(t, helper.IsComparable(map[string]any{}))
	assert.False(t, helper.IsComparable(func() {}))
}

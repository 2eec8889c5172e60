package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type row struct {
	ID       string  `db:"id"`
	Name     *string `db:"name"`
	Ignored  string  `db:"-"`
	Untagged string
	hidden   string `db:"hidden"`
}

func TestStructTagValues(t *testing.T) {
	assert.Equal(t, []string{"id", "name"}, StructTagValues(row{}))
	assert.Equal(t, []string{"id", "name"}, StructTagValues(&row{}))
	assert.Panics(t, func() { StructTagValues("nope") })
}

func TestStructToMap(t *testing.T) {
	r := &row{ID: "a", Name: StringPtr("b"), hidden: "x"}

	m := StructToMap(r)
	assert.Equal(t, map[string]any{"id": "a", "name": r.Name}, m)

	assert.Equal(t, map[string]any{"name": r.Name}, StructToMap(r, "id"))
}

func TestErrorWrapOrNil(t *testing.T) {
	assert.NoError(t, ErrorWrapOrNil(nil, "ignored"))

	base := errors.New("boom")
	assert.Same(t, base, ErrorWrapOrNil(base, ""))

	wrapped := ErrorWrapOrNil(base, "failed to save")
	assert.EqualError(t, wrapped, "failed to save: boom")
	assert.ErrorIs(t, wrapped, base)
}

func TestNilIfBlank(t *testing.T) {
	assert.Nil(t, NilIfBlank("   "))
	assert.Equal(t, "x", *NilIfBlank(" x "))
	assert.Equal(t, "", PtrString(nil))
}

func TestNanoID(t *testing.T) {
	assert.Len(t, NanoID(), NanoidSize)
	assert.Len(t, NanoIDSize(8), 8)
	assert.NotEqual(t, NanoID(), NanoID())
}

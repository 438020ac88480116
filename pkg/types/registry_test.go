package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(
		EntitySchema{Name: "Post", Fields: []FieldDef{{Name: "title", Type: FieldString}}},
		EntitySchema{Name: "Tag"},
	)
	require.NoError(t, err)

	post, ok := r.Get("Post")
	require.True(t, ok)
	require.Equal(t, "Post", post.Name)

	_, ok = r.Get("Missing")
	require.False(t, ok)

	all := r.All()
	require.Len(t, all, 2)
	require.Equal(t, "Post", all[0].Name)
	require.Equal(t, "Tag", all[1].Name)
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(EntitySchema{Name: "Post"}, EntitySchema{Name: "Post"})
	require.ErrorIs(t, err, ErrDuplicateEntity)
}

func TestNewRegistry_ValidatesSchemas(t *testing.T) {
	_, err := NewRegistry(EntitySchema{Name: "Post", Fields: []FieldDef{{Name: "x", Type: "blob"}}})
	require.ErrorIs(t, err, ErrFieldTypeUnknown)
}

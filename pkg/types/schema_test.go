package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntitySchema_Validate(t *testing.T) {
	valid := EntitySchema{
		Name: "Post",
		Fields: []FieldDef{
			{Name: "title", Type: FieldString},
			{Name: "views", Type: FieldNumber, Optional: true},
			{Name: "draft", Type: FieldBoolean},
		},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		schema EntitySchema
		want   error
	}{
		{"empty entity name", EntitySchema{}, ErrEntityNameEmpty},
		{"empty field name", EntitySchema{Name: "Post", Fields: []FieldDef{{Type: FieldString}}}, ErrFieldNameEmpty},
		{"unknown field type", EntitySchema{Name: "Post", Fields: []FieldDef{{Name: "x", Type: "datetime"}}}, ErrFieldTypeUnknown},
		{"duplicate field", EntitySchema{Name: "Post", Fields: []FieldDef{
			{Name: "x", Type: FieldString}, {Name: "x", Type: FieldNumber},
		}}, ErrDuplicateField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.schema.Validate(), tc.want)
		})
	}
}

func TestStorageName(t *testing.T) {
	cases := []struct {
		entity string
		want   string
	}{
		{"Post", "posts"},
		{"UserProfile", "userprofiles"},
		{"order_item", "order_items"},
		{"Invoice2", "invoice2s"},
	}
	for _, tc := range cases {
		got, err := StorageName(tc.entity)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}

func TestStorageName_RejectsUnsafeNames(t *testing.T) {
	// Normalization keeps only [a-z0-9_]; what survives must still be a
	// valid identifier.
	for _, entity := range []string{"0day", "1; DROP TABLE posts"} {
		_, err := StorageName(entity)
		require.ErrorIs(t, err, ErrInvalidIdentifier, "entity %q", entity)
	}
}

func TestValidateIdentifier(t *testing.T) {
	require.NoError(t, ValidateIdentifier("app_posts"))
	require.NoError(t, ValidateIdentifier("_private"))

	for _, name := range []string{"", "9lives", "bad-name", "bad name", "Upper", "semi;colon"} {
		require.ErrorIs(t, ValidateIdentifier(name), ErrInvalidIdentifier, "name %q", name)
	}
}

func TestEntitySchema_Field(t *testing.T) {
	schema := EntitySchema{Name: "Post", Fields: []FieldDef{{Name: "title", Type: FieldString}}}

	def, ok := schema.Field("title")
	require.True(t, ok)
	require.Equal(t, FieldString, def.Type)

	_, ok = schema.Field("missing")
	require.False(t, ok)
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

func TestIndexTypeOf(t *testing.T) {
	typ, err := IndexTypeOf("age_int")
	require.NoError(t, err)
	assert.Equal(t, IndexInteger, typ)

	typ, err = IndexTypeOf("email_bin")
	require.NoError(t, err)
	assert.Equal(t, IndexBinary, typ)

	_, err = IndexTypeOf("email")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeArgument))
}

func TestIndexQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   IndexQuery
		wantErr bool
	}{
		{"equal bin", NewEqualQuery("users", "email_bin", "a@b"), false},
		{"equal int", NewEqualQuery("users", "age_int", "42"), false},
		{"range int", NewRangeQuery("users", "age_int", "10", "20"), false},
		{"range bin", NewRangeQuery("users", "name_bin", "a", "m"), false},
		{"no container", NewEqualQuery("", "age_int", "1"), true},
		{"bad suffix", NewEqualQuery("users", "age", "1"), true},
		{"empty value", NewEqualQuery("users", "age_int", ""), true},
		{"missing end", NewRangeQuery("users", "age_int", "1", ""), true},
		{"non numeric int", NewEqualQuery("users", "age_int", "old"), true},
		{"non numeric range", NewRangeQuery("users", "age_int", "1", "x"), true},
		{"unknown kind", IndexQuery{Container: "u", Index: "a_bin", Kind: "between"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeArgument))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsRange(t *testing.T) {
	assert.True(t, NewRangeQuery("c", "i_int", "1", "2").IsRange())
	assert.False(t, NewEqualQuery("c", "i_int", "1").IsRange())
}

package toml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder(t *testing.T) {
	type item struct {
		Name string `toml:"name"`
	}

	enc := NewEncoder()
	bs, err := enc.Marshal(&item{Name: "sum"})
	require.NoError(t, err)
	assert.Equal(t, "name = \"sum\"\n", string(bs))

	bs, err = enc.Marshal([]item{{Name: "sum"}})
	require.NoError(t, err)
	assert.Equal(t, "[[items]]\n  name = \"sum\"\n", string(bs))

	var v item
	require.NoError(t, enc.Unmarshal([]byte("```toml\nname = \"say_hello\"\n```"), &v))
	assert.Equal(t, item{Name: "say_hello"}, v)
}

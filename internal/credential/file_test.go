package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file means no credential", func(t *testing.T) {
		assert := assert.New(t)
		p := NewFileProvider(filepath.Join(t.TempDir(), "token"))

		token, err := p.Credential(ctx)
		assert.Nil(err)
		assert.Equal("", token)
	})

	t.Run("store and read back", func(t *testing.T) {
		assert := assert.New(t)
		path := filepath.Join(t.TempDir(), "nested", "token")
		p := NewFileProvider(path)

		require.NoError(t, p.Store("abc.def.ghi"))
		token, err := p.Credential(ctx)
		assert.Nil(err)
		assert.Equal("abc.def.ghi", token)

		other := NewFileProvider(path)
		token, err = other.Credential(ctx)
		assert.Nil(err)
		assert.Equal("abc.def.ghi", token)
	})

	t.Run("watch picks up changes", func(t *testing.T) {
		assert := assert.New(t)
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))

		p := NewFileProvider(path)
		require.NoError(t, p.Watch())
		defer p.Close()

		token, err := p.Credential(ctx)
		assert.Nil(err)
		assert.Equal("first", token)

		require.NoError(t, os.WriteFile(path, []byte("second\n"), 0o600))
		assert.Eventually(func() bool {
			token, _ := p.Credential(ctx)
			return token == "second"
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, os.Remove(path))
		assert.Eventually(func() bool {
			token, _ := p.Credential(ctx)
			return token == ""
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("static", func(t *testing.T) {
		assert := assert.New(t)
		token, err := Static("tok").Credential(ctx)
		assert.Nil(err)
		assert.Equal("tok", token)

		token, err = None.Credential(ctx)
		assert.Nil(err)
		assert.Equal("", token)
	})
}

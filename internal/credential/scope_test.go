package credential

import (
	"os"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetForTest removes EnvKey for the duration of the test.
func unsetForTest(t *testing.T) {
	t.Helper()
	t.Setenv(EnvKey, "")
	require.NoError(t, os.Unsetenv(EnvKey))
}

func TestScopeRestoresAbsence(t *testing.T) {
	unsetForTest(t)

	var seen string
	err := Scope("test_token", func() error {
		seen = FromEnv()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "test_token", seen)

	_, present := os.LookupEnv(EnvKey)
	assert.False(t, present, "credential must be unset again after the scope")
}

func TestScopeRestoresPreviousValue(t *testing.T) {
	t.Setenv(EnvKey, "original")

	require.NoError(t, Scope("override", func() error {
		assert.Equal(t, "override", FromEnv())
		return nil
	}))
	assert.Equal(t, "original", FromEnv())
}

func TestScopeRestoresOnError(t *testing.T) {
	unsetForTest(t)

	boom := errors.New("Network error")
	err := Scope("test_token", func() error { return boom })
	assert.ErrorIs(t, err, boom)

	_, present := os.LookupEnv(EnvKey)
	assert.False(t, present)
}

func TestScopeRestoresOnPanic(t *testing.T) {
	t.Setenv(EnvKey, "original")

	assert.Panics(t, func() {
		_ = Scope("test_token", func() error { panic("ingest exploded") })
	})
	assert.Equal(t, "original", FromEnv())
}

func TestScopeEmptyTokenLeavesEnvironment(t *testing.T) {
	t.Setenv(EnvKey, "original")

	require.NoError(t, Scope("", func() error {
		assert.Equal(t, "original", FromEnv())
		return nil
	}))
	assert.Equal(t, "original", FromEnv())
}

func TestScopeSerializesConcurrentCallers(t *testing.T) {
	unsetForTest(t)

	var wg sync.WaitGroup
	for _, token := range []string{"a", "b", "c", "d", "e", "f"} {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			_ = Scope(token, func() error {
				assert.Equal(t, token, FromEnv())
				return nil
			})
		}(token)
	}
	wg.Wait()

	_, present := os.LookupEnv(EnvKey)
	assert.False(t, present)
}

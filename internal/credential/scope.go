// Package credential scopes a GitHub credential into the process environment
// for the duration of one unit of work.
//
// The environment is shared by every goroutine in the process, so scopes are
// serialized: a second Scope call blocks until the first has restored the
// previous state. Prefer passing the credential explicitly where the consumer
// supports it.
package credential

import (
	"os"
	"sync"
)

// EnvKey is the variable ingestion reads the credential from.
const EnvKey = "GITHUB_TOKEN"

var mu sync.Mutex

// Scope runs fn with EnvKey set to token and restores the previous value (or
// its absence) on every exit path, panics included. An empty token runs fn
// without touching the environment.
func Scope(token string, fn func() error) error {
	if token == "" {
		return fn()
	}

	mu.Lock()
	defer mu.Unlock()

	prev, had := os.LookupEnv(EnvKey)
	defer func() {
		if had {
			_ = os.Setenv(EnvKey, prev)
		} else {
			_ = os.Unsetenv(EnvKey)
		}
	}()

	if err := os.Setenv(EnvKey, token); err != nil {
		return err
	}
	return fn()
}

// FromEnv returns the credential currently installed in the environment.
func FromEnv() string {
	return os.Getenv(EnvKey)
}

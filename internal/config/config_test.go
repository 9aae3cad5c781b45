package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	values map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}}
}

func (f *fakeKV) ConfigAll() (map[string]string, error) {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

func (f *fakeKV) ConfigSet(key, value string) error {
	f.values[key] = value
	return nil
}

func TestCacheDefaults(t *testing.T) {
	c := NewCache(newFakeKV())
	require.Equal(t, 3, c.GetInt(KeyMaxRetries))
	require.Equal(t, 2.0, c.GetFloat(KeyBackoffBase))
	require.Equal(t, 500, c.GetInt(KeyPollIntervalMs))
}

func TestCacheSetTakesEffect(t *testing.T) {
	c := NewCache(newFakeKV())
	require.NoError(t, c.Set(string(KeyMaxRetries), "7"))
	require.Equal(t, 7, c.GetInt(KeyMaxRetries))
}

func TestCacheRejectsUnknownKey(t *testing.T) {
	c := NewCache(newFakeKV())
	err := c.Set("bogus", "1")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownKey))
}

func TestCacheRejectsBadCoercion(t *testing.T) {
	c := NewCache(newFakeKV())
	err := c.Set(string(KeyBackoffBase), "not-a-float")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidValue))

	err = c.Set(string(KeyBackoffBase), "1.0")
	require.Error(t, err, "backoff_base must be > 1")
}

func TestCacheAllReturnsDefaults(t *testing.T) {
	kv := newFakeKV()
	c := NewCache(kv)
	all := c.All()
	require.Equal(t, "3", all[string(KeyMaxRetries)])
}

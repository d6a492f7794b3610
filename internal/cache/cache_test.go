package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(ttl time.Duration, max int) (*TTL[string, int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New[string, int](ttl, max)
	c.now = clock.now
	return c, clock
}

func TestGetSet(t *testing.T) {
	c, _ := newTestCache(time.Minute, 0)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestExpiry(t *testing.T) {
	c, clock := newTestCache(time.Minute, 0)
	c.Set("a", 1)

	clock.t = clock.t.Add(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCleanExpired(t *testing.T) {
	c, clock := newTestCache(time.Minute, 0)
	c.Set("old", 1)
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("new", 2)
	clock.t = clock.t.Add(45 * time.Second)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestEvictsOldestWhenFull(t *testing.T) {
	c, clock := newTestCache(time.Hour, 3)
	for i, k := range []string{"a", "b", "c", "d"} {
		clock.t = clock.t.Add(time.Second)
		c.Set(k, i)
	}

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("d")
	assert.True(t, ok)
}

func TestDeleteFunc(t *testing.T) {
	c, _ := newTestCache(time.Hour, 0)
	c.Set("1:month", 1)
	c.Set("1:all", 2)
	c.Set("2:all", 3)

	c.DeleteFunc(func(k string) bool { return k[:2] == "1:" })
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("2:all")
	assert.True(t, ok)
	c.DeleteFunc(func(string) bool { return true })
	assert.Equal(t, 0, c.Len())
}

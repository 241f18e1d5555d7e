package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testDelay = 60 * time.Millisecond

type commits struct {
	mu     sync.Mutex
	values []string
}

func (c *commits) add(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *commits) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.values...)
}

func TestDefaultDelay(t *testing.T) {
	s := New(0, nil)
	defer s.Close()
	assert.Equal(t, DefaultDelay, s.delay)
}

func TestOnlyFinalKeystrokeCommits(t *testing.T) {
	var got commits
	s := New(testDelay, got.add)
	defer s.Close()

	var observed []string
	for _, v := range []string{"t", "te", "tes", "test"} {
		s.HandleSearchChange(v)
		assert.Equal(t, v, s.SearchValue(), "raw value updates immediately")
		observed = append(observed, s.DebouncedValue())
		time.Sleep(testDelay / 6)
	}

	require.Eventually(t, func() bool { return s.DebouncedValue() == "test" }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"test"}, got.get())
	for _, v := range observed {
		assert.NotContains(t, []string{"t", "te", "tes"}, v)
	}
	assert.False(t, s.Pending())
}

func TestNoCommitBeforeQuietPeriod(t *testing.T) {
	s := New(time.Hour, nil)
	defer s.Close()

	s.SetSearchValue("husky")
	assert.Equal(t, "husky", s.SearchValue())
	assert.Equal(t, "", s.DebouncedValue())
	assert.True(t, s.Pending())
}

func TestClearSearchCancelsPendingCommit(t *testing.T) {
	var got commits
	s := New(testDelay, got.add)
	defer s.Close()

	s.HandleSearchChange("rex")
	s.ClearSearch()

	assert.Equal(t, "", s.SearchValue())
	assert.Equal(t, "", s.DebouncedValue())

	time.Sleep(3 * testDelay)
	assert.Empty(t, got.get(), "cleared value must never land")
	assert.Equal(t, "", s.DebouncedValue())
}

func TestClearSearchAfterCommitNotifies(t *testing.T) {
	var got commits
	s := New(testDelay, got.add)
	defer s.Close()

	s.HandleSearchChange("pug")
	require.Eventually(t, func() bool { return s.DebouncedValue() == "pug" }, time.Second, 5*time.Millisecond)

	s.ClearSearch()
	assert.Equal(t, []string{"pug", ""}, got.get())

	s.ClearSearch()
	assert.Equal(t, []string{"pug", ""}, got.get(), "clearing an empty value is silent")
}

func TestDiscardClearsWithoutCommit(t *testing.T) {
	var got commits
	s := New(testDelay, got.add)
	defer s.Close()

	s.HandleSearchChange("pug")
	require.Eventually(t, func() bool { return s.DebouncedValue() == "pug" }, time.Second, 5*time.Millisecond)

	s.HandleSearchChange("pugs")
	s.Discard()
	assert.Empty(t, s.SearchValue())
	assert.Empty(t, s.DebouncedValue())
	assert.False(t, s.Pending())

	time.Sleep(2 * testDelay)
	assert.Equal(t, []string{"pug"}, got.get())
}

func TestSameValueDoesNotRecommit(t *testing.T) {
	var got commits
	s := NewWithValue(testDelay, "lab", got.add)
	defer s.Close()

	s.HandleSearchChange("labr")
	s.HandleSearchChange("lab")
	time.Sleep(3 * testDelay)

	assert.Empty(t, got.get())
	assert.Equal(t, "lab", s.DebouncedValue())
}

func TestCloseCancelsPendingCommit(t *testing.T) {
	var got commits
	s := New(testDelay, got.add)

	s.HandleSearchChange("collie")
	s.Close()
	s.HandleSearchChange("corgi")
	s.ClearSearch()

	time.Sleep(3 * testDelay)
	assert.Empty(t, got.get())
	assert.Equal(t, "", s.DebouncedValue())
	assert.False(t, s.Pending())
}

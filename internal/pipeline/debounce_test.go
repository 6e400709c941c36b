package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	fired map[string][]int
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{fired: make(map[string][]int), ch: make(chan string, 64)}
}

func (r *recorder) fire(key string, v int) {
	r.mu.Lock()
	r.fired[key] = append(r.fired[key], v)
	r.mu.Unlock()
	r.ch <- key
}

func (r *recorder) get(key string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.fired[key]...)
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(200*time.Millisecond, rec.fire)

	for i := 1; i <= 10; i++ {
		require.True(t, d.Push("a", i))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []int{10}, rec.get("a"), "exactly one fire with the last value")
	assert.Equal(t, 0, d.Pending())
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(20*time.Millisecond, rec.fire)

	d.Push("a", 1)
	d.Push("b", 2)

	for range 2 {
		select {
		case <-rec.ch:
		case <-time.After(2 * time.Second):
			t.Fatal("debouncer never fired")
		}
	}

	assert.Equal(t, []int{1}, rec.get("a"))
	assert.Equal(t, []int{2}, rec.get("b"))
}

func TestDebouncer_Flush(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(time.Hour, rec.fire)

	d.Push("a", 1)
	d.Push("a", 2)
	d.Push("b", 3)
	assert.Equal(t, 2, d.Pending())

	d.Flush()

	assert.Equal(t, []int{2}, rec.get("a"))
	assert.Equal(t, []int{3}, rec.get("b"))
	assert.False(t, d.Push("a", 4))
}

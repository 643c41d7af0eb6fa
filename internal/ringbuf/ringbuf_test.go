package ringbuf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brawl/internal/ringbuf"
)

func TestBuffer_PutGet(t *testing.T) {
	buf := ringbuf.New[string](8)

	buf.Put(3, "three")
	v, ok := buf.Get(3)
	assert.True(t, ok)
	assert.Equal(t, "three", v)

	_, ok = buf.Get(4)
	assert.False(t, ok, "unwritten tick must miss")
}

func TestBuffer_Wraparound(t *testing.T) {
	const n = 8
	buf := ringbuf.New[int](n)

	buf.Put(5, 50)
	buf.Put(5+n, 51)

	v, ok := buf.Get(5 + n)
	assert.True(t, ok)
	assert.Equal(t, 51, v)

	_, ok = buf.Get(5)
	assert.False(t, ok, "evicted tick must not return the overwriting value")
}

func TestBuffer_Reset(t *testing.T) {
	buf := ringbuf.New[int](4)
	buf.Put(0, 1)
	buf.Put(1, 2)

	buf.Reset()

	for tick := uint32(0); tick < 2; tick++ {
		_, ok := buf.Get(tick)
		assert.False(t, ok)
	}
}

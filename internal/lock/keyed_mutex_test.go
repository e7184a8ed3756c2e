package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	const goroutines = 100
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := km.Acquire("seat-1")
			defer h.Release()
			// ロック内では競合しないはず
			c := counter
			counter = c + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
	assert.Equal(t, 0, km.Len(), "解放後はエントリが残らない")
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()

	h1 := km.Acquire("seat-1")
	defer h1.Release()

	done := make(chan struct{})
	go func() {
		h2 := km.Acquire("seat-2")
		h2.Release()
		close(done)
	}()

	select {
	case <-done:
		// 別キーはブロックされない
	case <-time.After(1 * time.Second):
		t.Fatal("別キーのロック取得がブロックされた")
	}
}

func TestKeyedMutex_BlocksUntilReleased(t *testing.T) {
	km := NewKeyedMutex()

	h1 := km.Acquire("seat-1")

	acquired := make(chan struct{})
	go func() {
		h2 := km.Acquire("seat-1")
		close(acquired)
		h2.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("解放前にロックを取得できてしまった")
	case <-time.After(50 * time.Millisecond):
		// 期待通りブロックされている
	}

	h1.Release()

	select {
	case <-acquired:
		// 解放後に取得できた
	case <-time.After(1 * time.Second):
		t.Fatal("解放後もロックを取得できない")
	}
}

package lock

import "sync"

// KeyedMutex はエンティティIDごとの排他ロックを提供する
// 同一キーに対する操作を直列化し、異なるキーは並行に処理できる
// Acquire は先行ホルダーが解放するまでブロックする（タイムアウトなし）
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex は新しいKeyedMutexを作成する
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Handle は取得済みロックを表す
// Release はすべての出口経路で必ず呼び出すこと（defer を推奨）
type Handle struct {
	km  *KeyedMutex
	key string
	e   *entry
}

// Acquire はキーに対する排他ロックを取得する
// 参照カウントでエントリの生存を管理し、未使用になったキーはマップから除去する
func (km *KeyedMutex) Acquire(key string) *Handle {
	km.mu.Lock()
	e, ok := km.entries[key]
	if !ok {
		e = &entry{}
		km.entries[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
	return &Handle{km: km, key: key, e: e}
}

// Release はロックを解放する
func (h *Handle) Release() {
	h.e.mu.Unlock()

	h.km.mu.Lock()
	h.e.refs--
	if h.e.refs == 0 {
		delete(h.km.entries, h.key)
	}
	h.km.mu.Unlock()
}

// Len は現在保持中のキー数を返す（テスト用）
func (km *KeyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.entries)
}

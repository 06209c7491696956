package service

import "sync"

// RoomLocks 每个房间一把读写锁：替换表面状态持写锁，应用纹理持读锁
// 锁按引用计数保存，最后一个持有者释放后从表中移除
type RoomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	sync.RWMutex
	refs int
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[string]*roomLock)}
}

func (l *RoomLocks) acquire(roomID string) *roomLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[roomID]
	if !ok {
		m = &roomLock{}
		l.locks[roomID] = m
	}
	m.refs++
	return m
}

func (l *RoomLocks) release(roomID string, m *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(l.locks, roomID)
	}
}

// Write 获取写锁，返回释放函数
func (l *RoomLocks) Write(roomID string) func() {
	m := l.acquire(roomID)
	m.Lock()
	return func() {
		m.Unlock()
		l.release(roomID, m)
	}
}

// Read 获取读锁，返回释放函数
func (l *RoomLocks) Read(roomID string) func() {
	m := l.acquire(roomID)
	m.RLock()
	return func() {
		m.RUnlock()
		l.release(roomID, m)
	}
}

package service

import (
	"sync"
	"testing"
	"time"
)

func lockCount(l *RoomLocks) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func TestRoomLocksReleaseEntries(t *testing.T) {
	l := NewRoomLocks()
	for i := 0; i < 3; i++ {
		l.Write("room-a")()
		l.Read("room-b")()
	}
	if n := lockCount(l); n != 0 {
		t.Fatalf("%d lock entries left after release, want 0", n)
	}
}

func TestRoomLocksKeepEntryWhileHeld(t *testing.T) {
	l := NewRoomLocks()

	unlockA := l.Read("room-a")
	unlockB := l.Read("room-a")
	unlockA()
	if n := lockCount(l); n != 1 {
		t.Fatalf("entry dropped while a reader still holds it (count %d)", n)
	}

	// 写锁需等待剩余的读锁释放
	acquired := make(chan struct{})
	go func() {
		unlock := l.Write("room-a")
		close(acquired)
		unlock()
	}()
	select {
	case <-acquired:
		t.Fatal("writer acquired the lock while a reader held it")
	case <-time.After(20 * time.Millisecond):
	}

	unlockB()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock")
	}
}

func TestRoomLocksConcurrentUse(t *testing.T) {
	l := NewRoomLocks()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Write("room-c")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if n := lockCount(l); n != 0 {
		t.Fatalf("%d lock entries left, want 0", n)
	}
}

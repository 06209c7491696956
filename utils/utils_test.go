package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBytesMD5(t *testing.T) {
	// md5("") 的标准值
	if got := BytesMD5(nil); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("BytesMD5(nil) = %s", got)
	}
	if BytesMD5([]byte("a")) == BytesMD5([]byte("b")) {
		t.Fatal("different input produced same digest")
	}
}

func TestGenerateRoomID(t *testing.T) {
	id := GenerateRoomID()
	if !strings.HasPrefix(id, "room-") {
		t.Fatalf("unexpected room id %q", id)
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jpg")

	if err := WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("content = %q, want second", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestInitLoggerTestMode(t *testing.T) {
	if err := InitLogger("test"); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	RoomLogger("r1").Info("silent")
}

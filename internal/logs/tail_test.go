package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"radiomon/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radiomon.log")
	writeLog(t, path, "a\nb\nc\npartial")

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("offset = %d", offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil || len(lines) != 3 || lines[0] != "a" {
		t.Fatalf("Last(10) = %#v, %v", lines, err)
	}

	lines, offset, err = logs.Last(path, 0)
	if err != nil || lines != nil || offset != 6 {
		t.Fatalf("Last(0) = %#v, %d, %v", lines, offset, err)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("Last = %#v, %d, %v", lines, offset, err)
	}
	if _, _, err := logs.Last(t.TempDir(), 5); err == nil {
		t.Fatal("expected error for directory")
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) add(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func waitLines(t *testing.T, c *collector, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		lines := c.snapshot()
		if len(lines) >= n {
			return lines
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d lines, have %#v", n, lines)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFollowAppendsAndNewRunLog(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "radiomon-1.log")
	second := filepath.Join(dir, "radiomon-2.log")
	link := filepath.Join(dir, "radiomon.log")
	writeLog(t, first, "old\n")
	if err := os.Symlink(filepath.Base(first), link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	_, offset, err := logs.Last(link, 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	c := &collector{}
	go func() {
		done <- logs.Follow(ctx, link, offset, 5*time.Millisecond, c.add)
	}()

	appendLog(t, first, "half")
	appendLog(t, first, " line\n")
	lines := waitLines(t, c, 1)
	if lines[0] != "half line" {
		t.Fatalf("unexpected first line %#v", lines)
	}

	writeLog(t, second, "fresh\n")
	if err := os.Remove(link); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Base(second), link); err != nil {
		t.Fatal(err)
	}
	lines = waitLines(t, c, 2)
	if lines[1] != "fresh" {
		t.Fatalf("expected new run log to be read from the start, got %#v", lines)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
}

func TestMatchDevice(t *testing.T) {
	console := `2026-01-02 10:00:00 INFO modem registered component=devices device=cdc-wdm0`
	jsonLine := `{"level":"INFO","msg":"modem registered","device":"cdc-wdm1"}`

	if !logs.MatchDevice(console, "cdc-wdm0") || logs.MatchDevice(console, "cdc-wdm1") {
		t.Fatal("console match mismatch")
	}
	if !logs.MatchDevice(jsonLine, "cdc-wdm1") || logs.MatchDevice(jsonLine, "cdc-wdm0") {
		t.Fatal("json match mismatch")
	}
	if !logs.MatchDevice(console, "") {
		t.Fatal("empty device should match everything")
	}
}

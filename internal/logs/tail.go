package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// Last returns up to n trailing complete lines of path and the offset just
// past them. A missing file yields no lines and offset zero.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	if n <= 0 {
		_, offset, err := readLines(file, 0, nil)
		return nil, offset, err
	}

	ring := make([]string, n)
	count := 0
	_, offset, err := readLines(file, 0, func(line string) {
		ring[count%n] = line
		count++
	})
	if err != nil {
		return nil, 0, err
	}

	kept := min(count, n)
	lines := make([]string, kept)
	start := count - kept
	for i := 0; i < kept; i++ {
		lines[i] = ring[(start+i)%n]
	}
	return lines, offset, nil
}

// Follow emits lines appended to path after offset until ctx ends. When the
// file at path is replaced or truncated, reading restarts at the beginning of
// the new content.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, emit func(string)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var current os.FileInfo
	if info, err := os.Stat(path); err == nil {
		current = info
	}

	for {
		info, err := os.Stat(path)
		switch {
		case err == nil:
			if current != nil && !os.SameFile(current, info) {
				offset = 0
			}
			if info.Size() < offset {
				offset = 0
			}
			current = info
			next, err := readFrom(path, offset, emit)
			if err != nil {
				return err
			}
			offset = next
		case errors.Is(err, os.ErrNotExist):
			current = nil
			offset = 0
		default:
			return fmt.Errorf("stat log file: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// MatchDevice reports whether line is a record about device, in either the
// console or the JSON log format.
func MatchDevice(line, device string) bool {
	device = strings.TrimSpace(device)
	if device == "" {
		return true
	}
	return strings.Contains(line, "device="+device) ||
		strings.Contains(line, `"device":"`+device+`"`)
}

func readFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()
	_, next, err := readLines(file, offset, emit)
	return next, err
}

// readLines delivers complete lines from offset onward. A trailing line
// without a newline is left unread so the next poll sees it whole.
func readLines(file *os.File, offset int64, emit func(string)) (int, int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	count := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, offset, nil
			}
			return count, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		if emit != nil {
			emit(strings.TrimRight(line, "\r\n"))
		}
		count++
	}
}

package logger_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jetsetilly/dwarfidx/logger"
)

func TestLogger(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Write(w)
	if w.String() != "" {
		t.Fatalf("Write() before any Log() = %q, want empty", w.String())
	}

	log.Log(logger.Allow, "test", "this is a test")
	log.Write(w)
	if got, want := w.String(), "test: this is a test\n"; got != want {
		t.Fatalf("Write() = %q, want %q", got, want)
	}

	w.Reset()
	log.Log(logger.Allow, "test2", "this is another test")
	log.Write(w)
	want := "test: this is a test\ntest2: this is another test\n"
	if got := w.String(); got != want {
		t.Fatalf("Write() = %q, want %q", got, want)
	}

	w.Reset()
	log.Tail(w, 100)
	if got := w.String(); got != want {
		t.Fatalf("Tail(100) = %q, want %q", got, want)
	}

	w.Reset()
	log.Tail(w, 1)
	if got, want := w.String(), "test2: this is another test\n"; got != want {
		t.Fatalf("Tail(1) = %q, want %q", got, want)
	}

	w.Reset()
	log.Tail(w, 0)
	if got := w.String(); got != "" {
		t.Fatalf("Tail(0) = %q, want empty", got)
	}
}

func TestLoggerCapacity(t *testing.T) {
	log := logger.NewLogger(2)
	w := &strings.Builder{}

	log.Log(logger.Allow, "a", 1)
	log.Log(logger.Allow, "b", 2)
	log.Log(logger.Allow, "c", 3)
	log.Write(w)

	if got, want := w.String(), "b: 2\nc: 3\n"; got != want {
		t.Fatalf("Write() after overflow = %q, want %q", got, want)
	}
}

type prohibit struct{ allowed bool }

func (p prohibit) AllowLogging() bool { return p.allowed }

func TestPermission(t *testing.T) {
	log := logger.NewLogger(10)
	w := &strings.Builder{}

	log.Log(prohibit{allowed: false}, "tag", "detail")
	log.Write(w)
	if got := w.String(); got != "" {
		t.Fatalf("Write() after disallowed Log() = %q, want empty", got)
	}

	log.Log(prohibit{allowed: true}, "tag", "detail")
	log.Write(w)
	if got, want := w.String(), "tag: detail\n"; got != want {
		t.Fatalf("Write() = %q, want %q", got, want)
	}
}

func TestErrorLogging(t *testing.T) {
	log := logger.NewLogger(10)
	w := &strings.Builder{}

	err := errors.New("test error")
	log.Log(logger.Allow, "tag", err)
	log.Write(w)
	if got, want := w.String(), "tag: test error\n"; got != want {
		t.Fatalf("Write() = %q, want %q", got, want)
	}

	log.Clear()
	w.Reset()
	log.Logf(logger.Allow, "tag", "wrapped: %v", err)
	log.Write(w)
	if got, want := w.String(), "tag: wrapped: test error\n"; got != want {
		t.Fatalf("Write() = %q, want %q", got, want)
	}
}

type stringerTest struct{}

func (stringerTest) String() string { return "stringer test" }

func TestStringerLogging(t *testing.T) {
	log := logger.NewLogger(10)
	w := &strings.Builder{}

	log.Log(logger.Allow, "tag", stringerTest{})
	log.Write(w)
	if got, want := w.String(), "tag: stringer test\n"; got != want {
		t.Fatalf("Write() = %q, want %q", got, want)
	}
}

func TestPackageLevelLogger(t *testing.T) {
	logger.Clear()
	w := &strings.Builder{}

	logger.Logf(logger.Allow, "dwarfidx", "skipping %s: no debug info", "a.o")
	logger.Write(w)
	if got, want := w.String(), "dwarfidx: skipping a.o: no debug info\n"; got != want {
		t.Fatalf("Write() = %q, want %q", got, want)
	}
	logger.Clear()
}

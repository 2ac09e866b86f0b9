package sh

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestEnableCleanup(_ *testing.T) {
	// Idempotent: calling more than once must not panic.
	EnableCleanup()
	EnableCleanup()
}

func TestExeSuffix(t *testing.T) {
	suffix := ExeSuffix()
	if runtime.GOOS == "windows" {
		if suffix != ".exe" {
			t.Errorf("expected .exe on Windows, got %q", suffix)
		}
	} else if suffix != "" {
		t.Errorf("expected empty string on non-Windows, got %q", suffix)
	}
}

func TestIsWindows(t *testing.T) {
	if IsWindows() != (runtime.GOOS == "windows") {
		t.Errorf("IsWindows() disagreed with runtime.GOOS %q", runtime.GOOS)
	}
}

func TestWithExeSuffix(t *testing.T) {
	got := WithExeSuffix("myapp")
	if IsWindows() {
		if got != "myapp.exe" {
			t.Errorf("WithExeSuffix(%q) = %q, want myapp.exe", "myapp", got)
		}
	} else if got != "myapp" {
		t.Errorf("WithExeSuffix(%q) = %q, want myapp", "myapp", got)
	}
}

func TestOutput_ReturnsCombinedOutput(t *testing.T) {
	if IsWindows() {
		t.Skip("requires a POSIX shell")
	}

	output, err := Output("sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "hello") {
		t.Fatalf("expected output to contain hello, got %q", output)
	}
}

func TestRun_ReturnsError(t *testing.T) {
	if IsWindows() {
		t.Skip("requires a POSIX shell")
	}

	if err := Run("sh", "-c", "exit 1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestOutputContext_Success(t *testing.T) {
	if IsWindows() {
		t.Skip("requires a POSIX shell")
	}

	output, err := OutputContext(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "hello") {
		t.Fatalf("expected output to contain hello, got %q", output)
	}
}

func TestOutputContext_Cancellation(t *testing.T) {
	if IsWindows() {
		t.Skip("requires a POSIX shell")
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)

	go func() {
		_, err := OutputContext(ctx, "sleep", "10")
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err == nil || !(errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "cancelled")) {
			t.Errorf("expected a cancellation error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("command did not terminate after cancel")
	}
}

func TestRunContext_Success(t *testing.T) {
	if IsWindows() {
		t.Skip("requires a POSIX shell")
	}

	if err := RunContext(context.Background(), "true"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

package bugsink

import (
	"errors"
	"kolekta/config"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
)

func TestInitDisabled(t *testing.T) {
	// Save original config
	originalConfig := *config.C()
	defer func() {
		*config.C() = originalConfig
	}()

	// Test with BugSink disabled
	cfg := config.C()
	cfg.BugSink_Enabled = false

	err := Init()
	if err != nil {
		t.Errorf("Init() with disabled BugSink should not return error, got: %v", err)
	}

	if IsEnabled() {
		t.Error("BugSink should be disabled when BugSink_Enabled is false")
	}
}

func TestInitMissingDSN(t *testing.T) {
	// Save original config
	originalConfig := *config.C()
	defer func() {
		*config.C() = originalConfig
	}()

	// Test with enabled but missing DSN
	cfg := config.C()
	cfg.BugSink_Enabled = true
	cfg.BugSink_DSN = ""

	err := Init()
	if err != nil {
		t.Errorf("Init() with missing DSN should not return error, got: %v", err)
	}

	if IsEnabled() {
		t.Error("BugSink should be disabled when DSN is empty")
	}
}

func TestCaptureErrorWhenDisabled(t *testing.T) {
	initialized = false
	enabled = false

	// This should not panic or cause issues
	testErr := errors.New("test error")
	CaptureError(testErr, map[string]interface{}{
		"test": true,
	})
}

func TestCaptureMessageWhenDisabled(t *testing.T) {
	initialized = false
	enabled = false

	CaptureMessage("test message", map[string]interface{}{
		"test": true,
	})
}

func TestRecoverWhenDisabled(t *testing.T) {
	initialized = false
	enabled = false

	defer func() {
		// If Recover() works correctly, it should catch the panic
		// and not let it propagate to this defer
		if r := recover(); r != nil {
			t.Errorf("Recover() should have caught the panic when BugSink is disabled, but it propagated: %v", r)
		}
	}()

	func() {
		defer Recover()
		panic("test panic")
	}()
}

func TestSetUserWhenDisabled(t *testing.T) {
	initialized = false
	enabled = false

	SetUser(123, "testuser")
}

func TestSetTagWhenDisabled(t *testing.T) {
	initialized = false
	enabled = false

	SetTag("test", "value")
}

func TestAddBreadcrumbWhenDisabled(t *testing.T) {
	initialized = false
	enabled = false

	AddBreadcrumb("test message", "test", sentry.LevelInfo)
}

func TestFlushWhenDisabled(t *testing.T) {
	initialized = false
	enabled = false

	// Should return true when disabled
	result := Flush(1 * time.Second)
	if !result {
		t.Error("Flush() should return true when BugSink is disabled")
	}
}

func TestCloseWhenDisabled(t *testing.T) {
	initialized = false
	enabled = false

	Close()
}

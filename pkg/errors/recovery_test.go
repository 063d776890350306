package errors

import (
	"errors"
	"strings"
	"testing"
)

// TestRecover_WithPanic tests the Recover function when a panic occurs
func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "TestOperation" {
		t.Errorf("Expected operation 'TestOperation', got '%s'", panicErr.Operation)
	}
	if panicErr.PanicValue != "test panic message" {
		t.Errorf("Expected panic value 'test panic message', got '%v'", panicErr.PanicValue)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

// TestRecover_WithoutPanic tests the Recover function when no panic occurs
func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

// TestRecover_KeepsExistingError ensures a pre-existing error is not lost.
func TestRecover_KeepsExistingError(t *testing.T) {
	sentinel := errors.New("already failed")
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		defer func() { err = sentinel }()
		panic("boom")
	}

	err := testFunc()
	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
}

func TestSafeExecute(t *testing.T) {
	t.Run("returns function error", func(t *testing.T) {
		want := errors.New("fit failed")
		if err := SafeExecute("op", func() error { return want }); !errors.Is(err, want) {
			t.Errorf("Expected %v, got %v", want, err)
		}
	})

	t.Run("converts index panic", func(t *testing.T) {
		err := SafeExecute("fold", func() error {
			var s []int
			_ = s[3]
			return nil
		})
		var panicErr *PanicError
		if !errors.As(err, &panicErr) {
			t.Fatalf("Expected PanicError, got %T", err)
		}
		if panicErr.Operation != "fold" {
			t.Errorf("Expected operation 'fold', got %q", panicErr.Operation)
		}
	})
}

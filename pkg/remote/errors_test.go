package remote

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorClassification(t *testing.T) {
	transient := NewTransientError("upstream timeout", nil)
	rateLimited := NewRateLimitError("slow down", 2*time.Second)
	permanent := NewPermanentError("missing permission", nil).WithCode(ErrCodePermissionDenied)

	if !IsTransient(transient) || IsTransient(permanent) {
		t.Error("transient classification wrong")
	}
	if !IsRateLimited(rateLimited) || IsRateLimited(transient) {
		t.Error("rate-limit classification wrong")
	}
	if !IsPermanent(permanent) || IsPermanent(rateLimited) {
		t.Error("permanent classification wrong")
	}
	if !IsRetryable(transient) || !IsRetryable(rateLimited) || IsRetryable(permanent) {
		t.Error("retryable classification wrong")
	}
}

func TestClassificationSeesThroughWrapping(t *testing.T) {
	inner := NewRateLimitError("slow down", 3*time.Second)
	wrapped := fmt.Errorf("creating role %q: %w", "Moderator", inner)

	if !IsRateLimited(wrapped) {
		t.Error("wrapped rate-limit error not recognized")
	}
	if got := RetryAfter(wrapped); got != 3*time.Second {
		t.Errorf("RetryAfter = %v", got)
	}
	if RetryAfter(errors.New("plain")) != 0 {
		t.Error("plain errors must report zero wait")
	}
}

func TestErrorIsMatchesClassAndCode(t *testing.T) {
	err := NewPermanentError("no such channel", nil).
		WithOperation("edit_message").WithResource("m1").WithCode(ErrCodeNotFound)

	target := &Error{Class: ErrorClassPermanent, Code: ErrCodeNotFound}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match on class and code")
	}
	other := &Error{Class: ErrorClassPermanent, Code: ErrCodePermissionDenied}
	if errors.Is(err, other) {
		t.Error("errors.Is matched a different code")
	}
}

func TestErrorStringCarriesContext(t *testing.T) {
	err := NewTransientError("timeout", errors.New("dial tcp: i/o timeout")).
		WithOperation("create_channel").WithResource("general")

	msg := err.Error()
	for _, want := range []string{"transient", "timeout", "create_channel", "general", "i/o timeout"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error string missing %q: %s", want, msg)
		}
	}
}

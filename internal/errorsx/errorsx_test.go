package errorsx

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsError(t *testing.T) {
	t.Parallel()

	base := errors.New("denied")
	err := Wrap(base, ReasonPermission)
	if ReasonOf(err) != ReasonPermission || !Is(err, ReasonPermission) {
		t.Fatalf("expected permission reason, got %s", ReasonOf(err))
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected errors.Is to reach the wrapped error")
	}
	if err.Error() != "denied" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapKeepsInnerReasonThroughFmtWrapping(t *testing.T) {
	t.Parallel()

	inner := Wrap(errors.New("unplugged"), ReasonDevice)
	outer := Wrap(fmt.Errorf("start capture: %w", inner), ReasonProvider)
	if ReasonOf(outer) != ReasonDevice {
		t.Fatalf("expected device reason preserved, got %s", ReasonOf(outer))
	}
}

func TestNilAndUntaggedErrors(t *testing.T) {
	t.Parallel()

	if Wrap(nil, ReasonSend) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if ReasonOf(nil) != ReasonUnknown || ReasonOf(errors.New("plain")) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil and untagged errors")
	}
	if (&Error{Reason: ReasonProtocol}).Error() != "protocol error" {
		t.Fatalf("expected reason-only message when Err is nil")
	}
}

func TestNewf(t *testing.T) {
	t.Parallel()

	err := Newf(ReasonService, "service returned error %s", "202")
	if !Is(err, ReasonService) || err.Error() != "service returned error 202" {
		t.Fatalf("unexpected error: %v (%s)", err, ReasonOf(err))
	}
}

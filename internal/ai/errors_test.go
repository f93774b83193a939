package ai

import (
	"context"
	"errors"
	"testing"
)

func TestServiceErrorCategories(t *testing.T) {
	t.Parallel()

	base := context.DeadlineExceeded

	transient := Transient("invoke", base)
	if !IsTransient(transient) {
		t.Fatalf("expected transient category")
	}
	if IsAuthentication(transient) {
		t.Fatalf("transient error must not be authentication")
	}
	if !errors.Is(transient, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped provider error to be reachable")
	}

	auth := Authentication("invoke", errors.New("bad key"))
	if !IsAuthentication(auth) || IsTransient(auth) {
		t.Fatalf("unexpected categories for %v", auth)
	}

	var svcErr *ServiceError
	if !errors.As(auth, &svcErr) || svcErr.Op != "invoke" {
		t.Fatalf("expected ServiceError with op, got %#v", svcErr)
	}

	if Transient("x", nil) != nil || Authentication("x", nil) != nil {
		t.Fatalf("wrapping nil must return nil")
	}
}

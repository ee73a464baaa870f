package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToDomainErrorKeepsCodeThroughWrapping(t *testing.T) {
	t.Parallel()

	base := NewStoreUnavailable("create ticket", errors.New("dial tcp: refused"))
	wrapped := fmt.Errorf("new issue flow: %w", base)

	de := ToDomainError(wrapped)
	if de.Code != CodeStoreUnavailable {
		t.Fatalf("code mismatch: got=%s want=%s", de.Code, CodeStoreUnavailable)
	}
	if de.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("status mismatch: got=%d", de.HTTPStatus)
	}
	if !IsCode(wrapped, CodeStoreUnavailable) {
		t.Fatalf("expected IsCode to see through wrapping")
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	t.Parallel()

	if got := CodeOf(sql.ErrNoRows); got != CodeNotFound {
		t.Fatalf("code mismatch: got=%s want=%s", got, CodeNotFound)
	}
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Fatalf("code mismatch: got=%s want=%s", got, CodeInternal)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got=%s", got)
	}
}

func TestDomainErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewChannelError("send", errors.New("stale element"))
	want := "send: messaging channel error: stale element"
	if err.Error() != want {
		t.Fatalf("message mismatch: got=%q want=%q", err.Error(), want)
	}
	if !errors.Is(err, errors.Unwrap(err)) {
		t.Fatalf("expected unwrap chain")
	}
}

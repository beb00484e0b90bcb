package errs

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

var allCodes = []Code{
	InvalidArgument,
	NotFound,
	Timeout,
	Navigation,
	Unavailable,
	Internal,
}

func testCodeOf_RoundtripForTypedErrors(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")

	err := New(code, message)
	if got := CodeOf(err); got != code {
		t.Fatalf("CodeOf(New) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(err); got != message {
		t.Fatalf("MessageOf(New) mismatch: got=%q want=%q", got, message)
	}
}

func TestCodeOf_RoundtripForTypedErrors(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOf_RoundtripForTypedErrors)
}

func testCodeOfAndMessageOf_WrappedTypedError(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")
	cause := errors.New(rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "cause"))

	err := Wrap(code, message, cause)
	wrapped := fmt.Errorf("outer: %w", err)

	if got := CodeOf(wrapped); got != code {
		t.Fatalf("CodeOf(wrapped) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(wrapped); got != message {
		t.Fatalf("MessageOf(wrapped) mismatch: got=%q want=%q", got, message)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("wrapped error lost its cause")
	}
	if !Is(wrapped, code) {
		t.Fatalf("Is(wrapped, %q) = false", code)
	}
}

func TestCodeOfAndMessageOf_WrappedTypedError(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOfAndMessageOf_WrappedTypedError)
}

func TestCodeOf_UntypedErrorIsInternal(t *testing.T) {
	t.Parallel()
	err := errors.New("raw playwright failure")
	if got := CodeOf(err); got != Internal {
		t.Fatalf("CodeOf(untyped) = %q, want %q", got, Internal)
	}
	if got := MessageOf(err); got != "internal error" {
		t.Fatalf("MessageOf(untyped) = %q", got)
	}
	if CodeOf(nil) != Internal {
		t.Fatal("CodeOf(nil) should be internal")
	}
}

func TestIs_FindsInnerCode(t *testing.T) {
	t.Parallel()
	inner := New(Timeout, "wait for username input")
	outer := Wrap(Navigation, "open login page", inner)
	if !Is(outer, Navigation) || !Is(outer, Timeout) {
		t.Fatalf("Is should see both codes in %v", outer)
	}
	if Is(outer, NotFound) {
		t.Fatal("Is reported a code that is not in the chain")
	}
}

func TestError_MessageIncludesCause(t *testing.T) {
	t.Parallel()
	err := Wrap(NotFound, "locate dashboard", errors.New("no match"))
	if got := err.Error(); got != "locate dashboard: no match" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestExitCode_DistinctForKnownCodes(t *testing.T) {
	t.Parallel()
	seen := map[int]Code{}
	for _, code := range allCodes {
		exit := ExitCode(code)
		if exit == 0 {
			t.Fatalf("ExitCode(%q) must be non-zero", code)
		}
		if prev, ok := seen[exit]; ok {
			t.Fatalf("ExitCode collision between %q and %q", prev, code)
		}
		seen[exit] = code
	}
	if ExitCode("unknown") != ExitCode(Internal) {
		t.Fatal("unknown codes should map like internal")
	}
}

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrapRoundTrip(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, CategoryIOFailure, "manifest_unreadable", "check the file path")
	if err == nil {
		t.Fatal("expected wrapped error")
	}
	if CategoryOf(err) != CategoryIOFailure {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if CodeOf(err) != "manifest_unreadable" {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if HintOf(err) != "check the file path" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
	if !stderrors.Is(err, base) {
		t.Fatal("expected wrapped error to preserve cause")
	}
	if err.Error() != "boom" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestUnknownErrorDefaults(t *testing.T) {
	err := stderrors.New("plain")
	if CategoryOf(err) != "" {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if CodeOf(err) != "" {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if HintOf(err) != "" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
}

func TestWrapNilCauseReturnsNil(t *testing.T) {
	if got := Wrap(nil, CategoryInternalFailure, "internal_failure", "retry later"); got != nil {
		t.Fatalf("expected nil wrapped error, got=%v", got)
	}
}

func TestClassificationSurvivesOuterWrap(t *testing.T) {
	inner := Newf(CategoryInvalidInput, "manifest_invalid_json", "fix the JSON", "invalid json at offset %d", 12)
	outer := fmt.Errorf("verify skill.json: %w", inner)
	if CategoryOf(outer) != CategoryInvalidInput {
		t.Fatalf("unexpected category: %s", CategoryOf(outer))
	}
	if CodeOf(outer) != "manifest_invalid_json" {
		t.Fatalf("unexpected code: %s", CodeOf(outer))
	}
	if outer.Error() != "verify skill.json: invalid json at offset 12" {
		t.Fatalf("unexpected message: %s", outer.Error())
	}
}

package prompt

import (
	"strings"
	"testing"
)

func TestBuildObjectShape(t *testing.T) {
	env := Build("Extract sender and subject", "raw email body", ShapeObject)

	if !strings.Contains(env.System, "valid JSON object") {
		t.Fatalf("object system message missing JSON contract: %q", env.System)
	}
	if !strings.Contains(env.System, "Extract sender and subject") {
		t.Fatalf("instruction not interpolated: %q", env.System)
	}
	if env.User != "raw email body" {
		t.Fatalf("user message must be the input verbatim: %q", env.User)
	}
}

func TestBuildBoolShape(t *testing.T) {
	env := Build("Is this urgent?", "some text", ShapeBool)

	if !strings.Contains(env.System, "true or false") {
		t.Fatalf("bool system message missing literal contract: %q", env.System)
	}
	if !strings.Contains(env.System, "Is this urgent?") {
		t.Fatalf("instruction not interpolated: %q", env.System)
	}
}

func TestBuildDoesNotTruncateInput(t *testing.T) {
	long := strings.Repeat("x", 100_000)
	env := Build("Extract everything", long, ShapeObject)
	if env.User != long {
		t.Fatal("input text must be forwarded unmodified")
	}
}

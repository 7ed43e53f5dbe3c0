package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLoggerRouting(t *testing.T) {
	out := bytes.Buffer{}
	errOut := bytes.Buffer{}
	l := NewTo("TEST", &out, &errOut)

	l.Log("hello %d", 1)
	l.Warn("careful")
	l.Err(errors.New("boom"), "failed %s", "setup")

	if !strings.Contains(out.String(), "[TEST] ") || !strings.Contains(out.String(), "hello 1") {
		t.Errorf("unexpected log output %q", out.String())
	}
	if strings.Contains(out.String(), "careful") {
		t.Errorf("warning leaked to stdout: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "[TEST WARN] ") {
		t.Errorf("missing warn prefix in %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "failed setup, boom") {
		t.Errorf("missing wrapped error in %q", errOut.String())
	}
}

func TestTraceNeedsDebug(t *testing.T) {
	out := bytes.Buffer{}
	l := NewTo("TEST", &out, &out)

	l.Trace("hidden")
	if out.Len() != 0 {
		t.Fatalf("trace emitted without debug: %q", out.String())
	}

	l.WithDebug(true).Trace("shown")
	if !strings.Contains(out.String(), "[TEST TRACE] ") {
		t.Errorf("trace missing with debug: %q", out.String())
	}
}

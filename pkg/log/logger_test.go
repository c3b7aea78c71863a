package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	mem := NewMemoryOutput()
	l := NewLogger(WithLevel(WarnLevel), WithOutput(mem))
	l.Info("dropped")
	l.Warn("kept")
	l.Error("kept too")
	if got := len(mem.Entries()); got != 2 {
		t.Fatalf("want 2 entries, got %d", got)
	}
}

func TestWithFieldsAreInherited(t *testing.T) {
	mem := NewMemoryOutput()
	base := NewLogger(WithOutput(mem))
	l := base.With(Component("idalloc")).WithField("store", "pebble")
	l.Info("refill", Uint64("range", 65536))

	entries := mem.Entries()
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	f := entries[0].Fields
	if f[ComponentKey] != "idalloc" || f["store"] != "pebble" || f["range"] != uint64(65536) {
		t.Fatalf("unexpected fields: %#v", f)
	}
	// parent must not see child fields
	base.Info("plain")
	if _, ok := mem.Entries()[1].Fields["store"]; ok {
		t.Fatalf("child field leaked into parent")
	}
}

func TestErrorFieldIsCaptured(t *testing.T) {
	mem := NewMemoryOutput()
	l := NewLogger(WithOutput(mem))
	boom := errors.New("boom")
	l.Error("failed", Err(boom))
	e := mem.Entries()[0]
	if e.Error != boom {
		t.Fatalf("entry error not captured")
	}
	if e.Fields[ErrorKey] != "boom" {
		t.Fatalf("error field not stringified: %#v", e.Fields[ErrorKey])
	}
}

func TestWithContextRequestID(t *testing.T) {
	mem := NewMemoryOutput()
	l := NewLogger(WithOutput(mem))
	ctx := ContextWithRequestID(context.Background(), "req-1")
	l.WithContext(ctx).Info("hello")
	if got := mem.Entries()[0].Fields[RequestIDKey]; got != "req-1" {
		t.Fatalf("request id: %v", got)
	}
}

func TestTextAndJSONFormatters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithFormatter(&TextFormatter{}), WithOutput(&ConsoleOutput{W: &buf}))
	l.Info("server started", Str("addr", ":8080"), Str("note", "two words"))
	line := buf.String()
	if !strings.Contains(line, "INFO") || !strings.Contains(line, "addr=:8080") || !strings.Contains(line, `note="two words"`) {
		t.Fatalf("text line: %q", line)
	}

	buf.Reset()
	l = NewLogger(WithFormatter(&JSONFormatter{}), WithOutput(&ConsoleOutput{W: &buf}))
	l.Warn("slow", Int("ms", 12))
	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("json: %v", err)
	}
	if m["level"] != "WARN" || m["msg"] != "slow" || m["ms"] != float64(12) {
		t.Fatalf("json entry: %#v", m)
	}
}

func TestApplyConfigRedactsAndSamples(t *testing.T) {
	l, err := ApplyConfig(&Config{Level: "debug", Format: "text", Outputs: []OutputConfig{{Type: "null"}}, RedactKeys: []string{"token"}, SampleInitial: 1, SampleThereafter: 3})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	mem := NewMemoryOutput()
	bl := l.(*BaseLogger)
	bl.outputs = append(bl.outputs, mem)
	for i := 0; i < 7; i++ {
		l.Debug("tick", Str("token", "secret"))
	}
	// first one, then every third: indexes 0, 1, 4
	if got := mem.Count("tick"); got != 3 {
		t.Fatalf("sampled count: %d", got)
	}
	if mem.Entries()[0].Fields["token"] != "[REDACTED]" {
		t.Fatalf("token not redacted")
	}
}

func TestApplyConfigRejectsUnknownFormat(t *testing.T) {
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFatalExits(t *testing.T) {
	code := -1
	orig := osExit
	osExit = func(c int) { code = c }
	defer func() { osExit = orig }()
	l := NewLogger(WithOutput(NullOutput{}))
	l.Fatal("bye")
	if code != 1 {
		t.Fatalf("exit code %d", code)
	}
}

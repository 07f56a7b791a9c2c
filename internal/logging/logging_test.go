package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// captureLogOutput reinitializes the global logger to write to a buffer,
// runs f, then restores the defaults.
func captureLogOutput(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	SetOutput(&buf)
	InitLogger(level, format)

	f()

	InitLogger(LevelInfo, FormatJSON)
	SetOutput(nopWriter{})
	return buf.String()
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{
			name:   "Debug level JSON format",
			level:  LevelDebug,
			format: FormatJSON,
		},
		{
			name:   "Warn level JSON format",
			level:  LevelWarn,
			format: FormatJSON,
		},
		{
			name:   "Info level Text format",
			level:  LevelInfo,
			format: FormatText,
		},
		{
			name:   "Default level (invalid value)",
			level:  Level(999),
			format: FormatJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if GetLogger() == nil {
				t.Error("Expected logger to be initialized, got nil")
			}
		})
	}
	InitLogger(LevelInfo, FormatJSON)
}

func TestLevelFiltering(t *testing.T) {
	output := captureLogOutput(LevelWarn, FormatJSON, func() {
		Debug("hidden debug")
		InfoContext(context.Background(), "hidden info")
		Warn("visible warn")
		ErrorContext(context.Background(), "visible error")
	})

	if strings.Contains(output, "hidden") {
		t.Errorf("Expected debug and info to be filtered, got %s", output)
	}
	if !strings.Contains(output, "visible warn") || !strings.Contains(output, "visible error") {
		t.Errorf("Expected warn and error output, got %s", output)
	}
}

func TestTextFormat(t *testing.T) {
	output := captureLogOutput(LevelInfo, FormatText, func() {
		InfoContext(context.Background(), "test message text", "key", "value")
	})
	if !strings.Contains(output, "msg=\"test message text\"") || !strings.Contains(output, "key=value") {
		t.Errorf("Expected text output, got %s", output)
	}
}

func TestTimestampFormat(t *testing.T) {
	output := captureLogOutput(LevelInfo, FormatJSON, func() {
		InfoContext(context.Background(), "timestamp test")
	})

	var record map[string]any
	if err := json.Unmarshal([]byte(output), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	ts, ok := record["time"].(string)
	if !ok || !strings.Contains(ts, "T") || strings.Contains(ts, ".") {
		t.Errorf("Expected RFC3339 timestamp without fractions, got %v", record["time"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("text"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(text) = %v, %v", f, err)
	}
	if f, err := ParseFormat("Json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(Json) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestOperationID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "Context with operation ID",
			ctx:      WithOperationID(context.Background(), "op-1"),
			expected: "op-1",
		},
		{
			name:     "Context without operation ID",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "Context with wrong type value",
			ctx:      context.WithValue(context.Background(), OperationIDKey, 12345),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetOperationID(tt.ctx); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}

	a, b := NewOperationID(), NewOperationID()
	if len(a) != 36 || a == b {
		t.Errorf("NewOperationID() = %q, %q", a, b)
	}
}

func TestStartOperation(t *testing.T) {
	ctx := StartOperation(context.Background())
	id := GetOperationID(ctx)
	if len(id) != 36 {
		t.Fatalf("StartOperation() set op_id %q, want a UUID", id)
	}
	if got := GetOperationID(StartOperation(ctx)); got != id {
		t.Errorf("nested StartOperation() op_id = %q, want %q", got, id)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	CorpusLoaded(context.Background(), logger, "plain.corp", "cbor", "none", 0)
	if strings.Contains(buf.String(), "op_id") {
		t.Errorf("record without an operation carries op_id: %s", buf.String())
	}
}

func TestGlobalHelpers(t *testing.T) {
	output := captureLogOutput(LevelDebug, FormatJSON, func() {
		Debug("debug message", "key", "value")
		Warn("warning message", "key", "value")
	})
	for _, want := range []string{`"level":"DEBUG"`, `"level":"WARN"`, `"key":"value"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %s", want, output)
		}
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	ctx := WithOperationID(context.Background(), "test-op-id")

	tests := []struct {
		name string
		fn   func()
	}{
		{"DebugContext", func() { DebugContext(ctx, "debug message", "key", "value") }},
		{"InfoContext", func() { InfoContext(ctx, "info message", "key", "value") }},
		{"WarnContext", func() { WarnContext(ctx, "warning message", "key", "value") }},
		{"ErrorContext", func() { ErrorContext(ctx, "error message", "key", "value") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(LevelDebug, FormatJSON, tt.fn)
			if !strings.Contains(output, `"op_id":"test-op-id"`) {
				t.Errorf("Expected output to contain operation ID, got %s", output)
			}
		})
	}
}

func TestCorpusLoaded(t *testing.T) {
	output := captureLogOutput(LevelInfo, FormatJSON, func() {
		ctx := WithOperationID(context.Background(), "op-7")
		CorpusLoaded(ctx, nil, "cats.cbor.gz", "cbor", "gzip", 1, "extra", "yes")
	})

	for _, want := range []string{`"msg":"corpus loaded"`, `"op_id":"op-7"`, `"path":"cats.cbor.gz"`,
		`"codec":"cbor"`, `"compression":"gzip"`, `"documents":1`, `"extra":"yes"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %s", want, output)
		}
	}
}

func TestCorpusSavedWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	CorpusSaved(WithOperationID(context.Background(), "op-8"), logger, "hello.corp.cbor", "cbor", "none", 42)

	output := buf.String()
	for _, want := range []string{`"msg":"corpus saved"`, `"bytes":42`, `"op_id":"op-8"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %s", want, output)
		}
	}
}

func TestConversionFailed(t *testing.T) {
	output := captureLogOutput(LevelInfo, FormatJSON, func() {
		ctx := WithOperationID(context.Background(), "op-9")
		ConversionFailed(ctx, nil, "load", "broken.json", errors.New("unexpected end of JSON input"))
	})

	for _, want := range []string{`"level":"ERROR"`, `"op_id":"op-9"`, `"op":"load"`, `"error":"unexpected end of JSON input"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %s", want, output)
		}
	}
}

func TestInit(t *testing.T) {
	// The init function should have already run and initialized the logger
	if GetLogger() == nil {
		t.Error("Expected defaultLogger to be initialized by init()")
	}
}

func TestLevelConstants(t *testing.T) {
	if LevelDebug >= LevelInfo || LevelInfo >= LevelWarn || LevelWarn >= LevelError {
		t.Error("Expected LevelDebug < LevelInfo < LevelWarn < LevelError")
	}
	if FormatJSON == FormatText {
		t.Error("Expected FormatJSON != FormatText")
	}
}

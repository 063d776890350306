package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// capture is the sink shared by a TestLogger and every logger derived from
// it with With. Fold workers log concurrently, so all access is locked.
type capture struct {
	mu      sync.Mutex
	level   Level
	buffer  *bytes.Buffer
	entries []map[string]interface{}
}

func (c *capture) enabled(level Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level <= level
}

// TestLogger records every entry in memory, both as JSON lines in a
// buffer and as decoded maps. Field values go through a JSON round trip,
// so numbers compare as float64 and errors as their message.
type TestLogger struct {
	sink   *capture
	fields []any
}

// NewTestLogger creates a TestLogger that keeps entries at level and above.
//
//	logger, buffer := log.NewTestLogger(log.LevelDebug)
//	logger.Info("Search finished", log.FamilyKey, "gbt")
//	logger.ContainsField(log.FamilyKey, "gbt") // true
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &TestLogger{sink: &capture{level: level, buffer: buf}}, buf
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.write(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.write(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.write(LevelError, msg, fields) }

// With returns a logger that writes to the same sink with extra fields.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make([]any, 0, len(t.fields)+len(fields))
	merged = append(merged, t.fields...)
	merged = append(merged, normalizeFields(fields)...)
	return &TestLogger{sink: t.sink, fields: merged}
}

// Enabled implements Logger.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.sink.enabled(level)
}

func (t *TestLogger) write(level Level, msg string, fields []any) {
	if !t.sink.enabled(level) {
		return
	}
	entry := map[string]interface{}{
		"level":   level.String(),
		"message": msg,
	}
	put := func(kv []any) {
		for i := 0; i+1 < len(kv); i += 2 {
			v := kv[i+1]
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			entry[fmt.Sprint(kv[i])] = v
		}
	}
	put(t.fields)
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			entry["error"] = err.Error()
			fields = fields[1:]
		}
	}
	put(fields)

	line, err := json.Marshal(entry)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"level":%q,"message":%q,"marshal_error":%q}`, level, msg, err))
	}
	var decoded map[string]interface{}
	_ = json.Unmarshal(line, &decoded)

	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.buffer.Write(line)
	t.sink.buffer.WriteByte('\n')
	t.sink.entries = append(t.sink.entries, decoded)
}

// GetBuffer returns the JSON lines written so far.
func (t *TestLogger) GetBuffer() *bytes.Buffer {
	return t.sink.buffer
}

// GetLogEntries returns a copy of the captured entries in write order.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	return append([]map[string]interface{}(nil), t.sink.entries...), nil
}

// ContainsMessage reports whether any entry's message contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return t.CountMessages(message) > 0
}

// CountMessages counts the entries whose message contains message.
func (t *TestLogger) CountMessages(message string) int {
	entries, _ := t.GetLogEntries()
	n := 0
	for _, e := range entries {
		if m, _ := e["message"].(string); strings.Contains(m, message) {
			n++
		}
	}
	return n
}

// ContainsField reports whether any entry has key set to value. Numbers
// must be given as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, _ := t.GetLogEntries()
	for _, e := range entries {
		if v, ok := e[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops everything captured so far.
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.buffer.Reset()
	t.sink.entries = nil
}

// TestLoggerProvider hands out loggers that share one TestLogger sink.
type TestLoggerProvider struct {
	logger *TestLogger
}

// NewTestLoggerProvider creates a provider and returns the buffer its
// loggers write to.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	logger, buf := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger}, buf
}

// GetLogger implements LoggerProvider.
func (p *TestLoggerProvider) GetLogger() Logger { return p.logger }

// GetLoggerWithName implements LoggerProvider; the name is recorded under
// ComponentKey like the zerolog provider does.
func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.
func (p *TestLoggerProvider) SetLevel(level Level) {
	p.logger.sink.mu.Lock()
	defer p.logger.sink.mu.Unlock()
	p.logger.sink.level = level
}

// GetBuffer returns the shared buffer.
func (p *TestLoggerProvider) GetBuffer() *bytes.Buffer {
	return p.logger.GetBuffer()
}

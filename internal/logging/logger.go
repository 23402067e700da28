/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package logging provides structured, component-scoped logging for Aviary.

Each package declares one logger for its component and passes key-value
pairs alongside the message:

	var log = logging.NewLogger("server")

	log.Info("Listening", "addr", ln.Addr().String(), "workers", 2)
	log.Warn("Snapshot failed", "backend", "xml", "error", err)

Output is either colored text for terminals or one JSON object per line.
Level, output and format are process-wide and may be changed at any time;
loggers pick up the current settings on every call.
*/
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level represents the severity of a log message.
type Level int

const (
	// DEBUG level for detailed debugging information.
	DEBUG Level = iota
	// INFO level for general operational information.
	INFO
	// WARN level for warning conditions.
	WARN
	// ERROR level for error conditions.
	ERROR
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level. Unknown names map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Entry represents a single log entry with all its metadata.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Config holds the process-wide logger settings.
type Config struct {
	Level    Level
	Output   io.Writer
	JSONMode bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:    INFO,
		Output:   os.Stdout,
		JSONMode: false,
	}
}

var (
	globalConfig = DefaultConfig()
	globalMu     sync.RWMutex

	// writeMu serializes writes so concurrent entries never interleave.
	writeMu sync.Mutex
)

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level Level) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig.Level = level
}

// SetGlobalOutput sets the global log output.
func SetGlobalOutput(w io.Writer) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig.Output = w
}

// SetJSONMode enables or disables JSON output mode.
func SetJSONMode(enabled bool) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig.JSONMode = enabled
}

// Logger provides structured logging for one component.
type Logger struct {
	component string
}

// NewLogger creates a new Logger for the specified component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// Component returns the component name the logger was created with.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level Level, msg string, fields map[string]interface{}, args []interface{}) {
	globalMu.RLock()
	cfg := globalConfig
	globalMu.RUnlock()

	if level < cfg.Level || cfg.Output == nil {
		return
	}

	entry := Entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Component: l.component,
		Message:   msg,
	}

	if len(fields) > 0 || len(args) > 0 {
		entry.Fields = make(map[string]interface{}, len(fields)+len(args)/2)
		for k, v := range fields {
			entry.Fields[k] = v
		}
		addPairs(entry.Fields, args)
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	if cfg.JSONMode {
		writeJSON(cfg.Output, entry)
	} else {
		writeText(cfg.Output, entry)
	}
}

// addPairs copies alternating key/value args into dst.
func addPairs(dst map[string]interface{}, args []interface{}) {
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("arg%d", i)
		}
		dst[key] = normalize(args[i+1])
	}
	if len(args)%2 != 0 {
		dst["extra"] = normalize(args[len(args)-1])
	}
}

// normalize turns errors into strings so they survive JSON encoding.
func normalize(v interface{}) interface{} {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}

func writeJSON(w io.Writer, entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(w, "ERROR: failed to marshal log entry: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

// writeText formats: 2006-01-02T15:04:05.000Z [LEVEL] [component] message key=value ...
func writeText(w io.Writer, entry Entry) {
	timestamp := entry.Timestamp.Format("2006-01-02T15:04:05.000Z")

	var levelColor string
	switch entry.Level {
	case "DEBUG":
		levelColor = "\033[36m"
	case "INFO":
		levelColor = "\033[32m"
	case "WARN":
		levelColor = "\033[33m"
	case "ERROR":
		levelColor = "\033[31m"
	default:
		levelColor = "\033[0m"
	}
	const resetColor = "\033[0m"

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s[%-5s]%s [%s] %s",
		timestamp, levelColor, entry.Level, resetColor, entry.Component, entry.Message)

	// Keys are sorted so repeated lines line up when scanning a log.
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}

	fmt.Fprintln(w, b.String())
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, msg, nil, args)
}

// Info logs a message at INFO level.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, msg, nil, args)
}

// Warn logs a message at WARN level.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, msg, nil, args)
}

// Error logs a message at ERROR level.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(ERROR, msg, nil, args)
}

// With returns a logger that adds the given fields to every entry.
func (l *Logger) With(args ...interface{}) *ContextLogger {
	fields := make(map[string]interface{}, len(args)/2)
	addPairs(fields, args)
	return &ContextLogger{logger: l, fields: fields}
}

// ContextLogger is a logger with pre-set context fields.
type ContextLogger struct {
	logger *Logger
	fields map[string]interface{}
}

// With returns a child logger carrying both sets of fields.
func (c *ContextLogger) With(args ...interface{}) *ContextLogger {
	fields := make(map[string]interface{}, len(c.fields)+len(args)/2)
	for k, v := range c.fields {
		fields[k] = v
	}
	addPairs(fields, args)
	return &ContextLogger{logger: c.logger, fields: fields}
}

// Debug logs a message at DEBUG level with context fields.
func (c *ContextLogger) Debug(msg string, args ...interface{}) {
	c.logger.log(DEBUG, msg, c.fields, args)
}

// Info logs a message at INFO level with context fields.
func (c *ContextLogger) Info(msg string, args ...interface{}) {
	c.logger.log(INFO, msg, c.fields, args)
}

// Warn logs a message at WARN level with context fields.
func (c *ContextLogger) Warn(msg string, args ...interface{}) {
	c.logger.log(WARN, msg, c.fields, args)
}

// Error logs a message at ERROR level with context fields.
func (c *ContextLogger) Error(msg string, args ...interface{}) {
	c.logger.log(ERROR, msg, c.fields, args)
}

// ============================================================================
// Request Tracking
// ============================================================================

// GenerateRequestID returns a unique id for correlating request log lines.
func GenerateRequestID() string {
	return uuid.NewString()
}

// RequestContext holds information about a request for logging.
type RequestContext struct {
	ID         string
	StartTime  time.Time
	ClientAddr string
	Command    string
}

// NewRequestContext creates a new request context.
func NewRequestContext(clientAddr, command string) *RequestContext {
	return &RequestContext{
		ID:         GenerateRequestID(),
		StartTime:  time.Now(),
		ClientAddr: clientAddr,
		Command:    command,
	}
}

// Duration returns the duration since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

// DurationMs returns the duration in milliseconds.
func (r *RequestContext) DurationMs() float64 {
	return float64(r.Duration().Microseconds()) / 1000.0
}

// LogComplete logs a completed request.
func (r *RequestContext) LogComplete(logger *Logger, status string, args ...interface{}) {
	baseArgs := []interface{}{
		"transaction_id", r.ID,
		"client", r.ClientAddr,
		"command", r.Command,
		"status", status,
		"duration_ms", fmt.Sprintf("%.2f", r.DurationMs()),
	}
	baseArgs = append(baseArgs, args...)
	logger.Info("Request completed", baseArgs...)
}

// LogError logs a failed request.
func (r *RequestContext) LogError(logger *Logger, errMsg string, args ...interface{}) {
	baseArgs := []interface{}{
		"transaction_id", r.ID,
		"client", r.ClientAddr,
		"command", r.Command,
		"status", "error",
		"error", errMsg,
		"duration_ms", fmt.Sprintf("%.2f", r.DurationMs()),
	}
	baseArgs = append(baseArgs, args...)
	logger.Warn("Request failed", baseArgs...)
}

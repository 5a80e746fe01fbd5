package internal

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// SecureLogger is a levelled logger that scrubs device identifiers and
// session cookies before anything reaches the output. It is safe for use by
// concurrent download workers.
type SecureLogger struct {
	logger    *log.Logger
	mu        sync.RWMutex
	level     LogLevel
	debug     bool
	quiet     bool
	redactors []Redactor
}

// Redactor defines an interface for redacting sensitive information
type Redactor interface {
	Redact(input string) string
}

// CookieRedactor redacts session cookie values and auth headers
type CookieRedactor struct{}

var cookiePattern = regexp.MustCompile(`(?i)\b((?:sessionid|sessionid_ss|sid_tt|sid_guard|uid_tt|passport_csrf_token|odin_tt|ttwid)=)[^;\s]*`)

var headerPattern = regexp.MustCompile(`(?i)\b((?:Cookie|Set-Cookie|Authorization):\s+)[^\r\n]*`)

func (r *CookieRedactor) Redact(input string) string {
	result := headerPattern.ReplaceAllString(input, "${1}[REDACTED]")
	return cookiePattern.ReplaceAllString(result, "${1}[REDACTED]")
}

// DeviceRedactor redacts device identifiers and request signatures from URLs
type DeviceRedactor struct{}

var deviceParamPattern = regexp.MustCompile(`([?&](?:device_id|iid|openudid|idfa|vid|mas|as|token|access_token)=)[^&\s]*`)

func (r *DeviceRedactor) Redact(input string) string {
	return deviceParamPattern.ReplaceAllString(input, "${1}[REDACTED]")
}

// SecretRedactor masks one literal value, such as a configured password
type SecretRedactor struct {
	Secret string
}

func (r *SecretRedactor) Redact(input string) string {
	if r.Secret == "" {
		return input
	}
	return strings.ReplaceAll(input, r.Secret, "[REDACTED]")
}

// NewSecureLogger creates a new secure logger
func NewSecureLogger(output io.Writer, level LogLevel, debug, quiet bool) *SecureLogger {
	sl := &SecureLogger{
		logger: log.New(output, "", 0),
		level:  level,
		debug:  debug,
		quiet:  quiet,
		redactors: []Redactor{
			&CookieRedactor{},
			&DeviceRedactor{},
		},
	}
	if debug && level < LogLevelDebug {
		sl.level = LogLevelDebug
	}
	return sl
}

// NewDefaultLogger creates a stderr logger with default settings
func NewDefaultLogger(debug, quiet bool) *SecureLogger {
	level := LogLevelInfo
	if debug {
		level = LogLevelDebug
	}
	if quiet {
		level = LogLevelError
	}

	return NewSecureLogger(os.Stderr, level, debug, quiet)
}

func (sl *SecureLogger) redactSensitiveData(input string) string {
	sl.mu.RLock()
	redactors := sl.redactors
	sl.mu.RUnlock()

	result := input
	for _, redactor := range redactors {
		result = redactor.Redact(result)
	}
	return result
}

// formatMessage prefixes the timestamp, level and, in debug mode, the caller
func (sl *SecureLogger) formatMessage(level LogLevel, message string, debug bool) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	if debug {
		for depth := 3; depth <= 6; depth++ {
			_, file, line, ok := runtime.Caller(depth)
			if ok && !strings.HasSuffix(file, "logger.go") && !strings.HasSuffix(file, "log.go") {
				return fmt.Sprintf("[%s] %s %s:%d %s", timestamp, level.String(), filepath.Base(file), line, message)
			}
		}
	}

	return fmt.Sprintf("[%s] %s %s", timestamp, level.String(), message)
}

func (sl *SecureLogger) shouldLog(level LogLevel) bool {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if sl.quiet && level > LogLevelError {
		return false
	}
	return level <= sl.level
}

func (sl *SecureLogger) logf(level LogLevel, format string, args ...interface{}) {
	if !sl.shouldLog(level) {
		return
	}

	sl.mu.RLock()
	debug := sl.debug
	sl.mu.RUnlock()

	message := sl.redactSensitiveData(fmt.Sprintf(format, args...))
	sl.logger.Print(sl.formatMessage(level, message, debug))
}

// Error logs an error message
func (sl *SecureLogger) Error(format string, args ...interface{}) {
	sl.logf(LogLevelError, format, args...)
}

// Warn logs a warning message
func (sl *SecureLogger) Warn(format string, args ...interface{}) {
	sl.logf(LogLevelWarn, format, args...)
}

// Info logs an info message
func (sl *SecureLogger) Info(format string, args ...interface{}) {
	sl.logf(LogLevelInfo, format, args...)
}

// Debug logs a debug message
func (sl *SecureLogger) Debug(format string, args ...interface{}) {
	sl.logf(LogLevelDebug, format, args...)
}

// LogHTTPRequest logs an outgoing request at debug level
func (sl *SecureLogger) LogHTTPRequest(req *http.Request) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}
	sl.Debug("HTTP Request: %s %s Headers: %v", req.Method, req.URL.String(), sl.sanitizeHeaders(req.Header))
}

// LogHTTPResponse logs a response status at debug level
func (sl *SecureLogger) LogHTTPResponse(resp *http.Response) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}
	path := ""
	if resp.Request != nil {
		path = resp.Request.URL.Path
	}
	sl.Debug("HTTP Response: %s %s", resp.Status, path)
}

func (sl *SecureLogger) sanitizeHeaders(header http.Header) map[string]string {
	sanitized := make(map[string]string, len(header))
	for name, values := range header {
		if isSensitiveHeader(name) {
			sanitized[name] = "[REDACTED]"
		} else {
			sanitized[name] = strings.Join(values, ", ")
		}
	}
	return sanitized
}

func isSensitiveHeader(name string) bool {
	lowerName := strings.ToLower(name)
	for _, sensitive := range []string{"authorization", "cookie", "token", "x-tt-"} {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// SetLevel sets the logging level
func (sl *SecureLogger) SetLevel(level LogLevel) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.level = level
}

// SetDebug enables or disables debug mode
func (sl *SecureLogger) SetDebug(debug bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.debug = debug
	if debug && sl.level < LogLevelDebug {
		sl.level = LogLevelDebug
	}
}

// SetQuiet enables or disables quiet mode
func (sl *SecureLogger) SetQuiet(quiet bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.quiet = quiet
	if quiet {
		sl.level = LogLevelError
	}
}

// AddRedactor adds a custom redactor
func (sl *SecureLogger) AddRedactor(redactor Redactor) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.redactors = append(sl.redactors, redactor)
}

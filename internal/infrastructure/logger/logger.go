package logger

import (
	"fmt"
	"time"

	"github.com/taskmaster/console/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the console's sugared zap logger
type Logger struct {
	*zap.SugaredLogger
}

// New builds a logger from the logger section of the configuration.
// "json" gives zap's production encoder, anything else the development one.
func New(cfg config.LoggerConfig) (*Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	// The CLI writes to stderr so command output on stdout stays clean.
	switch {
	case cfg.Output == "file" && cfg.Filename != "":
		zapConfig.OutputPaths = []string{cfg.Filename}
		zapConfig.ErrorOutputPaths = []string{cfg.Filename}
	case cfg.Output == "stderr":
		zapConfig.OutputPaths = []string{"stderr"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	default:
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	}

	zapLogger, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) with(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(fields...)}
}

// WithComponent tags entries with the subsystem that wrote them.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithRequestID tags entries written while serving one browser request,
// backend calls included.
func (l *Logger) WithRequestID(requestID string) *Logger {
	if requestID == "" {
		return l
	}
	return l.with("request_id", requestID)
}

// Request is one served console request as the access log records it.
type Request struct {
	Method    string
	URI       string
	Status    int
	Latency   time.Duration
	RemoteIP  string
	UserAgent string
	RequestID string
	Err       error
}

// LogRequest writes the access log line for a served page or action.
func (l *Logger) LogRequest(r Request) {
	fields := []interface{}{
		"method", r.Method,
		"uri", r.URI,
		"status", r.Status,
		"latency_ms", float64(r.Latency.Microseconds()) / 1000,
		"remote_ip", r.RemoteIP,
		"user_agent", r.UserAgent,
		"request_id", r.RequestID,
	}
	if r.Err != nil {
		l.Errorw("HTTP request failed", append(fields, "error", r.Err.Error())...)
		return
	}
	l.Infow("HTTP request", fields...)
}

// LogBackendCall records one outbound call to the REST backend
func (l *Logger) LogBackendCall(method, path string, statusCode int, duration float64, err error) {
	fields := []interface{}{
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", duration,
	}
	if err != nil {
		l.Warnw("Backend call failed", append(fields, "error", err.Error())...)
		return
	}
	l.Debugw("Backend call", fields...)
}

// LogUserAction records something a signed-in user did.
func (l *Logger) LogUserAction(userID, action string, metadata map[string]interface{}) {
	fields := []interface{}{"user_id", userID, "action", action}
	for k, v := range metadata {
		fields = append(fields, k, v)
	}
	l.Infow("User action", fields...)
}

// LogSecurityEvent records refused logins and role checks.
func (l *Logger) LogSecurityEvent(event, userID, ip string, details map[string]interface{}) {
	fields := []interface{}{"security_event", event, "user_id", userID, "ip", ip}
	for k, v := range details {
		fields = append(fields, k, v)
	}
	l.Warnw("Security event", fields...)
}

// Close flushes buffered entries.
func (l *Logger) Close() error {
	return l.SugaredLogger.Sync()
}

package blog

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// Mock records every log line written through its Logger, in slog's text
// format and without timestamps, for inspection by test functions.
type Mock struct {
	mu     sync.Mutex
	logged []string
	logger *slog.Logger
}

// NewMock returns a Mock whose Logger logs at debug level and above.
func NewMock() *Mock {
	m := &Mock{}
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}
	m.logger = slog.New(newAuditHandler(slog.NewTextHandler, m, opts))
	return m
}

// Logger returns the logger which writes to m.
func (m *Mock) Logger() *slog.Logger {
	return m.logger
}

// Write implements io.Writer. slog calls it exactly once per record.
func (m *Mock) Write(in []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logged = append(m.logged, strings.TrimSuffix(string(in), "\n"))
	return len(in), nil
}

// GetAll returns all lines logged since the last call to Clear.
func (m *Mock) GetAll() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.logged...)
}

// GetAllMatching returns all lines logged since the last Clear whose text
// matches the given regexp.
func (m *Mock) GetAllMatching(reString string) []string {
	re := regexp.MustCompile(reString)
	var matches []string
	for _, line := range m.GetAll() {
		if re.MatchString(line) {
			matches = append(matches, line)
		}
	}
	return matches
}

// Clear resets the log buffer.
func (m *Mock) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logged = nil
}

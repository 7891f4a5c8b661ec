package obs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared line-oriented logger. Output defaults to stdout.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// SetOutput redirects the shared logger. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	Logger().SetOutput(w)
}

// Emit writes one JSON log line of the given kind, stamping the UTC
// timestamp. Callers pass only their own fields; "ts" and "type" are owned
// here. A marshal failure falls back to a fixed error line so the stream
// stays machine-parseable.
func Emit(kind string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["type"] = kind
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"type":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}

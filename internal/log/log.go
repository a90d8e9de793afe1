// Package applog provides the leveled, label-carrying logger every other
// package in this tree calls into instead of the bare standard library
// logger: a local line (unless running under `go test`) plus a best-effort,
// fire-and-forget push to a Loki endpoint when one is configured.
package applog

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	lokiURL    string
	lokiClient = &http.Client{Timeout: 200 * time.Millisecond}

	mu           sync.RWMutex
	infoEnabled  = true
	debugEnabled = false
	errorEnabled = true
)

// Configure sets the Loki push endpoint and level toggles from the
// reloader's RuntimeConfig build. Safe to call again on every reload;
// readers (Emit) take a read lock so a reload never races a log line.
func Configure(lokiPushURL string, info, debug, errorLvl bool) {
	mu.Lock()
	defer mu.Unlock()
	lokiURL = normalizeLokiURL(lokiPushURL)
	infoEnabled = info
	debugEnabled = debug
	errorEnabled = errorLvl
}

func normalizeLokiURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || strings.Contains(base, "/loki/api/v1/push") {
		return base
	}
	return strings.TrimRight(base, "/") + "/loki/api/v1/push"
}

// testRun reports whether we're executing inside `go test`, in which case
// local printing is suppressed so test output stays readable.
func testRun() bool {
	return flag.Lookup("test.v") != nil || flag.Lookup("test.run") != nil
}

func levelEnabled(level string) bool {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case "debug":
		return debugEnabled
	case "error":
		return errorEnabled
	default:
		return infoEnabled
	}
}

// Emit logs line at level ("info", "debug", or "error") under app,
// annotated with labels, both locally and (if configured) to Loki.
func Emit(level, app string, labels map[string]string, line string) {
	level = strings.ToLower(level)
	if !levelEnabled(level) {
		return
	}
	if !testRun() {
		log.Printf("[%s] %s: %s", strings.ToUpper(level), app, line)
	}
	pushLoki(level, app, labels, line)
}

// Info, Debug and Error are the convenience entry points the rest of the
// tree actually calls.
func Info(app, format string, args ...any)  { Emit("info", app, nil, fmt.Sprintf(format, args...)) }
func Debug(app, format string, args ...any) { Emit("debug", app, nil, fmt.Sprintf(format, args...)) }
func Error(app, format string, args ...any) { Emit("error", app, nil, fmt.Sprintf(format, args...)) }

// InfoWith and ErrorWith attach structured labels (e.g. {"backend": addr})
// to the pushed Loki stream, mirroring how the dispatcher tags a line with
// the pool/backend it concerns.
func InfoWith(app string, labels map[string]string, format string, args ...any) {
	Emit("info", app, labels, fmt.Sprintf(format, args...))
}
func ErrorWith(app string, labels map[string]string, format string, args ...any) {
	Emit("error", app, labels, fmt.Sprintf(format, args...))
}

func pushLoki(level, app string, labels map[string]string, line string) {
	mu.RLock()
	url := lokiURL
	mu.RUnlock()
	if url == "" {
		return
	}

	streamLabels := map[string]string{"app": app, "level": level, "host": hostname()}
	for k, v := range labels {
		if strings.TrimSpace(k) == "" {
			continue
		}
		streamLabels[k] = v
	}

	payload := struct {
		Streams []struct {
			Stream map[string]string `json:"stream"`
			Values [][2]string       `json:"values"`
		} `json:"streams"`
	}{}
	payload.Streams = append(payload.Streams, struct {
		Stream map[string]string `json:"stream"`
		Values [][2]string       `json:"values"`
	}{
		Stream: streamLabels,
		Values: [][2]string{{strconv.FormatInt(time.Now().UnixNano(), 10), line}},
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := lokiClient.Do(req)
	if err == nil {
		resp.Body.Close()
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}

// Package gelf ships log lines to a Graylog endpoint over UDP.
package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Writer implements io.Writer so it can be fanned in next to stderr with
// log.SetOutput and io.MultiWriter. Each Write sends one GELF 1.1 message,
// fire-and-forget.
type Writer struct {
	conn     net.Conn
	hostname string
}

// New dials the GELF UDP input at addr (e.g. "172.17.0.1:12201").
func New(addr string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "agnos"
	}
	return &Writer{conn: conn, hostname: hostname}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	short := shortMessage(string(p))

	msg := map[string]any{
		"version":       "1.1",
		"host":          w.hostname,
		"short_message": short,
		"timestamp":     float64(time.Now().UnixNano()) / 1e9,
		"level":         levelFor(short),
		"_service":      "agnos",
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return len(p), nil // never fail the log call
	}
	w.conn.Write(payload)
	return len(p), nil
}

// shortMessage strips the stdlib log date/time prefix ("2006/01/02 15:04:05 ",
// exactly 20 characters when present) and the trailing newline.
func shortMessage(line string) string {
	line = strings.TrimRight(line, "\n")
	if len(line) > 20 && line[4] == '/' && line[7] == '/' && line[10] == ' ' && line[13] == ':' {
		return line[20:]
	}
	return line
}

// levelFor maps our logging conventions onto syslog severities.
func levelFor(short string) int {
	switch {
	case strings.Contains(short, "PANIC:") || strings.Contains(short, "Fatal"):
		return 3 // Error
	case strings.HasPrefix(short, "Warning:"):
		return 4 // Warning
	default:
		return 6 // Informational
	}
}

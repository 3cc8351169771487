// Package audit appends one JSON line per step of every mutating operation.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Logger struct {
	path string
	mu   sync.Mutex
}

type Event struct {
	Timestamp string            `json:"timestamp"`
	OpID      string            `json:"op_id,omitempty"`
	Operation string            `json:"operation"`
	Skill     string            `json:"skill,omitempty"`
	Phase     string            `json:"phase"`
	Status    string            `json:"status"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func New(path string) *Logger {
	return &Logger{path: path}
}

func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(blob, '\n')); err != nil {
		return err
	}
	return nil
}

// Op ties the events of one operation together under a generated id.
type Op struct {
	l     *Logger
	id    string
	name  string
	skill string
}

// Begin records the start of an operation on skillID.
func (l *Logger) Begin(operation, skillID string) *Op {
	op := &Op{l: l, id: uuid.NewString(), name: operation, skill: skillID}
	_ = l.Log(Event{OpID: op.id, Operation: operation, Skill: skillID, Phase: "start", Status: "ok"})
	return op
}

func (o *Op) ID() string { return o.id }

// Step records an intermediate phase.
func (o *Op) Step(phase, message string) {
	_ = o.l.Log(Event{OpID: o.id, Operation: o.name, Skill: o.skill, Phase: phase, Status: "ok", Message: message})
}

// Done records the outcome. A nil err is a success.
func (o *Op) Done(err error, fields map[string]string) {
	ev := Event{OpID: o.id, Operation: o.name, Skill: o.skill, Phase: "finish", Status: "ok", Fields: fields}
	if err != nil {
		ev.Status = "error"
		ev.Message = err.Error()
		ev.Code = errorCode(err)
	}
	_ = o.l.Log(ev)
}

// errorCode extracts the leading CODE of a "CODE: detail" error message.
func errorCode(err error) string {
	code, _, ok := strings.Cut(err.Error(), ":")
	if !ok || code == "" {
		return ""
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && r != '_' && (r < '0' || r > '9') {
			return ""
		}
	}
	return code
}

package tail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

var outcomes = map[string]string{
	"ok":             "OK",
	"canceled":       "Canceled",
	"exceededCpu":    "Exceeded CPU Limit",
	"exceededMemory": "Exceeded Memory Limit",
	"exception":      "Exception Thrown",
	"unknown":        "Unknown",
}

// Event is one trace delivered by the tail session.
type Event struct {
	Outcome        string                     `json:"outcome"`
	EventTimestamp int64                      `json:"eventTimestamp"`
	Event          map[string]json.RawMessage `json:"event"`
	Logs           []LogLine                  `json:"logs"`
	Exceptions     []Exception                `json:"exceptions"`
}

type LogLine struct {
	Level   string `json:"level"`
	Message []any  `json:"message"`
}

type Exception struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode trace event: %w", err)
	}
	return &ev, nil
}

func (e *Event) has(key string) bool {
	_, ok := e.Event[key]
	return ok
}

func (e *Event) field(key string, v any) {
	if raw, ok := e.Event[key]; ok {
		_ = json.Unmarshal(raw, v)
	}
}

func (e *Event) outcome() string {
	if o, ok := outcomes[e.Outcome]; ok {
		return o
	}
	return outcomes["unknown"]
}

func stamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

// Lines renders the event as the lines printed by the logs command. The
// first line summarises the trigger; console output and exceptions follow.
func (e *Event) Lines() []string {
	lines := []string{e.summary()}
	for _, l := range e.Logs {
		parts := make([]string, len(l.Message))
		for i, m := range l.Message {
			parts[i] = fmt.Sprint(m)
		}
		lines = append(lines, fmt.Sprintf("  (%s) %s", l.Level, strings.Join(parts, " ")))
	}
	for _, ex := range e.Exceptions {
		lines = append(lines, fmt.Sprintf("  %s: %s", ex.Name, ex.Message))
	}
	return lines
}

func (e *Event) summary() string {
	at := stamp(e.EventTimestamp)
	switch {
	case e.has("request"):
		var req struct {
			Method string `json:"method"`
			URL    string `json:"url"`
		}
		var resp struct {
			Status int `json:"status"`
		}
		e.field("request", &req)
		e.field("response", &resp)
		if req.URL == "" {
			return fmt.Sprintf("[missing request] - %s @%s", e.outcome(), at)
		}
		return fmt.Sprintf("%s %s - %s %d @%s", strings.ToUpper(req.Method), req.URL, e.outcome(), resp.Status, at)

	case e.has("cron"):
		var cron string
		var scheduled int64
		e.field("cron", &cron)
		e.field("scheduledTime", &scheduled)
		return fmt.Sprintf("%q @%s - %s", cron, stamp(scheduled), e.Outcome)

	case e.has("mailFrom"):
		var from, to string
		var size int64
		e.field("mailFrom", &from)
		e.field("rcptTo", &to)
		e.field("rawSize", &size)
		return fmt.Sprintf("Email from:%s to:%s size:%d @%s - %s", from, to, size, at, e.outcome())

	case e.has("scheduledTime"):
		var scheduled int64
		e.field("scheduledTime", &scheduled)
		return fmt.Sprintf("Alarm @%s - %s", stamp(scheduled), e.outcome())

	case e.has("consumedEvents"):
		var consumed []struct {
			ScriptName string `json:"scriptName"`
		}
		e.field("consumedEvents", &consumed)
		set := map[string]struct{}{}
		for _, c := range consumed {
			if c.ScriptName != "" {
				set[c.ScriptName] = struct{}{}
			}
		}
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Sprintf("Tailing %s - %s @%s", strings.Join(names, ","), e.outcome(), at)

	case e.has("message") && e.has("type"):
		var msg string
		e.field("message", &msg)
		return msg

	case e.has("queue"):
		var queue string
		var size int
		e.field("queue", &queue)
		e.field("batchSize", &size)
		plural := "s"
		if size == 1 {
			plural = ""
		}
		return fmt.Sprintf("Queue %s (%d message%s) - %s @%s", queue, size, plural, e.outcome(), at)
	}
	return fmt.Sprintf("Unknown Event - %s @%s", e.outcome(), at)
}

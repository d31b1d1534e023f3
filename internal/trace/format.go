package trace

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Format is the output encoding of events.
type Format uint8

const (
	FormatAuto   Format = iota // from the output file extension
	FormatText                 // human-readable lines
	FormatNDJSON               // one JSON object per line
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatText:
		return "text"
	case FormatNDJSON:
		return "ndjson"
	default:
		return "unknown"
	}
}

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
	}
}

// processStart anchors the relative timestamps of the text format.
var processStart = time.Now()

// FormatEvent encodes ev in format f. FormatAuto falls back to text.
func FormatEvent(ev *Event, f Format) []byte {
	if f == FormatNDJSON {
		return formatNDJSON(ev)
	}
	return formatText(ev)
}

type jsonEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id,omitempty"`
	ParentID uint64            `json:"parent_id,omitempty"`
	GID      uint64            `json:"gid,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func formatNDJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:     ev.Time.UTC().Format(time.RFC3339Nano),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		GID:      ev.GID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	})
	if err != nil {
		// only a map[string]string and plain fields; cannot fail
		return nil
	}
	return append(data, '\n')
}

// formatText renders "[  12.345ms] <indent>→ name (detail) {k=v, ...}".
// Indentation follows the scope depth; extras are sorted by key.
func formatText(ev *Event) []byte {
	var sb strings.Builder
	ms := float64(ev.Time.Sub(processStart).Microseconds()) / 1000
	fmt.Fprintf(&sb, "[%9.3fms] ", ms)
	if ev.Scope > ScopeDriver {
		sb.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeDriver)))
	}
	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("→ ")
	case KindSpanEnd:
		sb.WriteString("← ")
	case KindPoint:
		sb.WriteString("• ")
	case KindHeartbeat:
		sb.WriteString("♡ ")
	}
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteByte(')')
	}
	if len(ev.Extra) > 0 {
		keys := lo.Keys(ev.Extra)
		slices.Sort(keys)
		pairs := lo.Map(keys, func(k string, _ int) string { return k + "=" + ev.Extra[k] })
		sb.WriteString(" {")
		sb.WriteString(strings.Join(pairs, ", "))
		sb.WriteByte('}')
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

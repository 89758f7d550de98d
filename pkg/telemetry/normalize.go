package telemetry

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Normalize coerces a loosely-typed raw record into a canonical Event.
// Missing or malformed fields degrade to defaults; Normalize never fails.
// It is idempotent: normalizing the JSON form of a normalized event
// yields the same event.
func Normalize(raw map[string]any, now time.Time) Event {
	ev := Event{
		Timestamp:         stringField(raw, "timestamp"),
		TraceID:           stringField(raw, "trace_id"),
		SpanID:            stringField(raw, "span_id"),
		ParentSpanID:      stringField(raw, "parent_span_id"),
		Model:             stringField(raw, "model"),
		Skill:             stringField(raw, "skill"),
		Tool:              stringField(raw, "tool"),
		TerminationReason: stringField(raw, "termination_reason"),
	}

	if ev.Timestamp == "" {
		ev.Timestamp = now.UTC().Format(time.RFC3339Nano)
	}

	ev.InputTokens = intField(raw, "input_tokens")
	ev.OutputTokens = intField(raw, "output_tokens")
	ev.IterationIndex = intField(raw, "iteration_index")
	ev.LatencyMS = floatField(raw, "latency_ms")

	if total, ok := intFieldOK(raw, "total_tokens"); ok {
		ev.TotalTokens = total
	} else {
		ev.TotalTokens = saturatingAdd(ev.InputTokens, ev.OutputTokens)
	}

	return ev
}

// Signature extracts the caller-supplied signature string from a raw
// record, or "" when absent or not a string.
func Signature(raw map[string]any) string {
	return stringField(raw, "signature")
}

func stringField(raw map[string]any, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

// intField coerces a numeric or numeric-string field to a non-negative
// integer, defaulting to 0.
func intField(raw map[string]any, key string) int64 {
	n, _ := intFieldOK(raw, key)
	return n
}

func intFieldOK(raw map[string]any, key string) (int64, bool) {
	v, present := raw[key]
	if !present {
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	// int64(f) is implementation-defined for out-of-range floats.
	if f >= math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(f), true
}

// saturatingAdd adds two non-negative token counts without wrapping.
func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// floatField coerces a numeric or numeric-string field to a
// non-negative float, defaulting to 0.
func floatField(raw map[string]any, key string) float64 {
	v, present := raw[key]
	if !present {
		return 0
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

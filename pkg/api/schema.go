package api

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Request bodies are validated structurally before decoding, so shape
// errors surface as clear 400s instead of silently degrading through
// the normalizer's defaulting rules.

const ingestSchemaJSON = `{
  "type": "object",
  "required": ["events"],
  "properties": {
    "events": {
      "type": "array",
      "items": {"type": "object"}
    },
    "replace": {"type": "boolean"},
    "signing_mode": {"type": "string"},
    "require_trace_ids": {"type": "boolean"}
  }
}`

const simulateSchemaJSON = `{
  "type": "object",
  "required": ["events"],
  "properties": {
    "events": {
      "type": "array",
      "items": {"type": "object"}
    },
    "policy": {
      "type": "object",
      "properties": {
        "signing_mode": {"type": "string"},
        "replay_seed_enabled": {"type": "boolean"},
        "require_trace_ids": {"type": "boolean"},
        "minimum_fidelity": {"type": "string", "enum": ["demo", "degraded", "live"]},
        "max_p95_latency_ms": {"type": "number", "minimum": 0},
        "max_p99_latency_ms": {"type": "number", "minimum": 0}
      }
    }
  }
}`

var (
	ingestSchema   = mustCompileSchema("ingest", ingestSchemaJSON)
	simulateSchema = mustCompileSchema("simulate", simulateSchemaJSON)
)

func mustCompileSchema(name, raw string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://eventgate.opencode.dev/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("add %s schema: %v", name, err))
	}
	return c.MustCompile(url)
}

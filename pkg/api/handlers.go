package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/opencode-ops/eventgate/pkg/pipeline"
	"github.com/opencode-ops/eventgate/pkg/store"
	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

// SourceHeader carries the advisory caller identity recorded in
// provenance. It is free text, not a trust boundary.
const SourceHeader = "X-Event-Source"

const maxBodyBytes = 4 << 20

// Service wires the pipelines and the store to HTTP routes.
type Service struct {
	pipeline *pipeline.Pipeline
	store    store.EventStore
}

// NewService creates the HTTP service.
func NewService(p *pipeline.Pipeline, st store.EventStore) *Service {
	return &Service{pipeline: p, store: st}
}

// Register attaches all routes to mux. The rate limiter guards the
// ingest route only; simulation and reads are pure.
func (s *Service) Register(mux *http.ServeMux, limiter *RateLimiter) {
	ingest := http.Handler(http.HandlerFunc(s.HandleIngest))
	if limiter != nil {
		ingest = limiter.Middleware(ingest)
	}
	mux.Handle("/events", &methodSwitch{post: ingest, get: http.HandlerFunc(s.HandleEventLog)})
	mux.HandleFunc("/policy-simulate", s.HandleSimulate)
	mux.HandleFunc("/healthz", s.HandleHealth)
}

// methodSwitch routes GET and POST on one path.
type methodSwitch struct {
	get  http.Handler
	post http.Handler
}

func (m *methodSwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		m.get.ServeHTTP(w, r)
	case http.MethodPost:
		m.post.ServeHTTP(w, r)
	default:
		WriteMethodNotAllowed(w)
	}
}

// HandleIngest handles POST /events.
func (s *Service) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}

	var req pipeline.IngestRequest
	if !decodeBody(w, r, ingestSchema, &req) {
		return
	}

	result, err := s.pipeline.Ingest(r.Header.Get(SourceHeader), req)
	if err != nil {
		var rejected *pipeline.PolicyRejectionError
		switch {
		case errors.Is(err, pipeline.ErrNoEvents):
			writeBatchError(w, err.Error(), nil)
		case errors.As(err, &rejected):
			writeBatchError(w, rejected.Error(), rejected.Diagnostics)
		default:
			WriteInternal(w, err)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// HandleSimulate handles POST /policy-simulate.
func (s *Service) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}

	var req pipeline.SimulationRequest
	if !decodeBody(w, r, simulateSchema, &req) {
		return
	}

	report, err := s.pipeline.Simulate(req)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoEventsForSimulation) {
			writeBatchError(w, err.Error(), nil)
			return
		}
		WriteInternal(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// eventLogResponse is the GET /events body consumed by dashboards.
type eventLogResponse struct {
	SnapshotID string            `json:"snapshot_id"`
	Version    string            `json:"version"`
	UpdatedAt  string            `json:"updated_at"`
	Count      int               `json:"count"`
	Events     []telemetry.Event `json:"events"`
}

// HandleEventLog handles GET /events: a read-only snapshot of the
// persisted store, so collaborators never touch the file directly.
func (s *Service) HandleEventLog(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Snapshot()
	if err != nil {
		WriteInternal(w, err)
		return
	}

	// Deterministic per store revision; pollers compare it cheaply.
	snapshotID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(doc.UpdatedAt)).String()

	writeJSON(w, http.StatusOK, eventLogResponse{
		SnapshotID: snapshotID,
		Version:    doc.Version,
		UpdatedAt:  doc.UpdatedAt,
		Count:      len(doc.Events),
		Events:     doc.Events,
	})
}

// HandleHealth handles GET /healthz.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w)
		return
	}

	size, err := s.store.Size()
	if err != nil {
		WriteInternal(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"store_size":      size,
		"signing_enabled": s.pipeline.SigningEnabled(),
	})
}

// decodeBody reads, schema-validates, and decodes a JSON request body.
// It writes the error response itself and reports success.
func decodeBody(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WritePayloadTooLarge(w, tooLarge.Limit)
			return false
		}
		WriteBadRequest(w, "Unable to read request body")
		return false
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return false
	}
	if err := schema.Validate(generic); err != nil {
		WriteBadRequest(w, "Request body failed validation: "+err.Error())
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

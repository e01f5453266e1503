package observability

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// textFormat is the Prometheus plaintext exposition format (version 0.0.4)
var textFormat = expfmt.NewFormat(expfmt.TypeTextPlain)

// ExpositionContentType is the Content-Type of rendered metrics
func ExpositionContentType() string {
	return string(textFormat)
}

// Exporter renders a registry in the Prometheus text exposition format
type Exporter struct {
	gatherer prometheus.Gatherer
}

// NewExporter creates an exporter reading from gatherer
func NewExporter(gatherer prometheus.Gatherer) *Exporter {
	return &Exporter{gatherer: gatherer}
}

// Render serializes the current registry contents. It only reads the registry;
// refreshing business gauges is the caller's job.
func (e *Exporter) Render() ([]byte, error) {
	families, err := e.gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, textFormat)
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return nil, fmt.Errorf("failed to encode metric family %s: %w", family.GetName(), err)
		}
	}

	return buf.Bytes(), nil
}

// Handler serves GET /metrics: refresh business gauges (best effort), then render.
// A nil refresher skips the refresh.
func (e *Exporter) Handler(refresher Refresher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if refresher != nil {
			refresher.Refresh(r.Context())
		}

		body, err := e.Render()
		if err != nil {
			FromContext(r.Context()).WithError(err).Error("Failed to render metrics")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", ExpositionContentType())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}

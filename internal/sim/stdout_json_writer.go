package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"swarmnet-sim/internal/telemetry"
)

// JSONStdoutWriter prints link state and deliveries as JSON lines.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// WriteLinkState outputs a link state row in JSON format.
func (w *JSONStdoutWriter) WriteLinkState(row telemetry.LinkStateRow) error {
	data, _ := json.Marshal(row)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteLinkStates outputs multiple link state rows in JSON format.
func (w *JSONStdoutWriter) WriteLinkStates(rows []telemetry.LinkStateRow) error {
	for _, r := range rows {
		_ = w.WriteLinkState(r)
	}
	return nil
}

// WriteDelivery outputs a delivery row in JSON format.
func (w *JSONStdoutWriter) WriteDelivery(row telemetry.DeliveryRow) error {
	data, _ := json.Marshal(row)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteDeliveries outputs multiple delivery rows in JSON format.
func (w *JSONStdoutWriter) WriteDeliveries(rows []telemetry.DeliveryRow) error {
	for _, r := range rows {
		_ = w.WriteDelivery(r)
	}
	return nil
}

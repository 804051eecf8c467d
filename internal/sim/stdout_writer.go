package sim

import (
	"fmt"
	"io"
	"os"

	"swarmnet-sim/internal/telemetry"
)

// StdoutWriter prints human-readable link state and delivery lines.
type StdoutWriter struct {
	out io.Writer
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout}
}

// WriteLinkState prints one node line.
func (w *StdoutWriter) WriteLinkState(row telemetry.LinkStateRow) error {
	state := "active"
	if row.OnOutage {
		state = "outage"
	}
	fmt.Fprintf(w.out, "[%s] node=%s pos=(%.1f,%.1f,%.1f) neighbors=%d state=%s\n",
		row.Timestamp.Format("15:04:05.000"), row.Address,
		row.X, row.Y, row.Z, row.NeighborCount, state)
	return nil
}

// WriteDelivery prints one delivery line.
func (w *StdoutWriter) WriteDelivery(row telemetry.DeliveryRow) error {
	suffix := ""
	if row.Unknown {
		suffix = " unknown-destination"
	}
	fmt.Fprintf(w.out, "[%s] msg=%s %s -> %s:%d bytes=%d recipients=%d delivered=%d%s\n",
		row.Timestamp.Format("15:04:05.000"), row.MsgID[:8],
		row.SrcAddress, row.DstAddress, row.DstPort,
		row.Bytes, row.Recipients, row.Delivered, suffix)
	return nil
}

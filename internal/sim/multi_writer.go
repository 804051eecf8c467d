package sim

import (
	"swarmnet-sim/internal/telemetry"
)

// MultiWriter fan-outs link state and delivery rows to multiple writers.
type MultiWriter struct {
	linkWriters     []LinkWriter
	deliveryWriters []DeliveryWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(lws []LinkWriter, dws []DeliveryWriter) *MultiWriter {
	return &MultiWriter{linkWriters: lws, deliveryWriters: dws}
}

// WriteLinkState sends a link state row to all writers.
func (mw *MultiWriter) WriteLinkState(row telemetry.LinkStateRow) error {
	for _, w := range mw.linkWriters {
		if err := w.WriteLinkState(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteLinkStates sends multiple link state rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteLinkStates(rows []telemetry.LinkStateRow) error {
	for _, w := range mw.linkWriters {
		if bw, ok := w.(batchLinkWriter); ok {
			if err := bw.WriteLinkStates(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteLinkState(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteDelivery sends a delivery row to all delivery writers.
func (mw *MultiWriter) WriteDelivery(row telemetry.DeliveryRow) error {
	for _, w := range mw.deliveryWriters {
		if err := w.WriteDelivery(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteDeliveries sends multiple delivery rows to all delivery writers, using batch if supported.
func (mw *MultiWriter) WriteDeliveries(rows []telemetry.DeliveryRow) error {
	for _, w := range mw.deliveryWriters {
		if bw, ok := w.(batchDeliveryWriter); ok {
			if err := bw.WriteDeliveries(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteDelivery(r); err != nil {
				return err
			}
		}
	}
	return nil
}

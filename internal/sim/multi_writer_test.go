package sim

import (
	"testing"
	"time"

	"swarmnet-sim/internal/telemetry"
)

// mockBatchLinkWriter counts batch calls to prove the batch path is
// preferred over row-by-row writes.
type mockBatchLinkWriter struct {
	MockLinkWriter
	batches int
}

func (m *mockBatchLinkWriter) WriteLinkStates(rows []telemetry.LinkStateRow) error {
	m.batches++
	m.Rows = append(m.Rows, rows...)
	return nil
}

type mockBatchDeliveryWriter struct {
	MockDeliveryWriter
	batches int
}

func (m *mockBatchDeliveryWriter) WriteDeliveries(rows []telemetry.DeliveryRow) error {
	m.batches++
	m.Rows = append(m.Rows, rows...)
	return nil
}

func sampleLinkRows(n int) []telemetry.LinkStateRow {
	rows := make([]telemetry.LinkStateRow, n)
	for i := range rows {
		rows[i] = telemetry.LinkStateRow{
			ClusterID: "c1",
			Address:   "ground-01",
			Timestamp: time.Date(2025, 6, 1, 12, 0, i, 0, time.UTC),
		}
	}
	return rows
}

func TestMultiWriterFanOut(t *testing.T) {
	plain := &MockLinkWriter{}
	batch := &mockBatchLinkWriter{}
	mw := NewMultiWriter([]LinkWriter{plain, batch}, nil)

	rows := sampleLinkRows(3)
	if err := mw.WriteLinkStates(rows); err != nil {
		t.Fatal(err)
	}

	if len(plain.Rows) != 3 {
		t.Errorf("plain writer rows = %d, want 3", len(plain.Rows))
	}
	if len(batch.Rows) != 3 {
		t.Errorf("batch writer rows = %d, want 3", len(batch.Rows))
	}
	if batch.batches != 1 {
		t.Errorf("batch calls = %d, want 1", batch.batches)
	}
}

func TestMultiWriterDeliveryBatch(t *testing.T) {
	plain := &MockDeliveryWriter{}
	batch := &mockBatchDeliveryWriter{}
	mw := NewMultiWriter(nil, []DeliveryWriter{plain, batch})

	rows := []telemetry.DeliveryRow{
		{ClusterID: "c1", SrcAddress: "ground-01", DstAddress: "boo"},
		{ClusterID: "c1", SrcAddress: "ground-02", DstAddress: "boo"},
	}
	if err := mw.WriteDeliveries(rows); err != nil {
		t.Fatal(err)
	}

	if len(plain.Rows) != 2 || len(batch.Rows) != 2 {
		t.Errorf("rows = %d/%d, want 2/2", len(plain.Rows), len(batch.Rows))
	}
	if batch.batches != 1 {
		t.Errorf("batch calls = %d, want 1", batch.batches)
	}
}

func TestMultiWriterSingleRow(t *testing.T) {
	plain := &MockLinkWriter{}
	mw := NewMultiWriter([]LinkWriter{plain}, nil)
	if err := mw.WriteLinkState(sampleLinkRows(1)[0]); err != nil {
		t.Fatal(err)
	}
	if len(plain.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(plain.Rows))
	}
}

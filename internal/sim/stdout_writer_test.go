package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"swarmnet-sim/internal/telemetry"
)

func TestStdoutWriterFormat(t *testing.T) {
	var buf bytes.Buffer
	w := &StdoutWriter{out: &buf}

	row := telemetry.LinkStateRow{
		ClusterID: "c1", Address: "ground-01",
		X: 10, Y: 20, Z: 0, NeighborCount: 2, OnOutage: false,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := w.WriteLinkState(row); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"node=ground-01", "neighbors=2", "state=active"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	buf.Reset()
	row.OnOutage = true
	_ = w.WriteLinkState(row)
	if !strings.Contains(buf.String(), "state=outage") {
		t.Errorf("output %q missing outage state", buf.String())
	}

	buf.Reset()
	_ = w.WriteDelivery(telemetry.DeliveryRow{
		ClusterID: "c1", MsgID: "0123456789abcdef", SrcAddress: "ground-01",
		DstAddress: "boo", DstPort: 4200, Bytes: 64, Recipients: 1, Delivered: 1,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	out = buf.String()
	for _, want := range []string{"ground-01 -> boo:4200", "bytes=64", "delivered=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	buf.Reset()
	_ = w.WriteDelivery(telemetry.DeliveryRow{MsgID: "0123456789abcdef", Unknown: true})
	if !strings.Contains(buf.String(), "unknown-destination") {
		t.Errorf("output %q missing unknown-destination marker", buf.String())
	}
}

func TestJSONStdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONStdoutWriter{out: &buf}

	if err := w.WriteLinkStates(sampleLinkRows(2)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var row telemetry.LinkStateRow
	if err := json.Unmarshal([]byte(lines[0]), &row); err != nil {
		t.Fatal(err)
	}
	if row.ClusterID != "c1" || row.Address != "ground-01" {
		t.Errorf("decoded row = %+v", row)
	}
}

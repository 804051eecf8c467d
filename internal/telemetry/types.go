// Telemetry structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// LinkStateRow records one node's connectivity state for one tick.
type LinkStateRow struct {
	ClusterID     string    `json:"cluster_id"` // TAG
	Address       string    `json:"address"`    // TAG
	X             float64   `json:"x"`          // FIELD
	Y             float64   `json:"y"`          // FIELD
	Z             float64   `json:"z"`          // FIELD
	NeighborCount int       `json:"neighbor_count"`
	OnOutage      bool      `json:"on_outage"`
	Timestamp     time.Time `json:"ts"` // TIME INDEX
}

// DeliveryRow records the outcome of one dispatched datagram.
type DeliveryRow struct {
	ClusterID  string    `json:"cluster_id"`  // TAG
	SrcAddress string    `json:"src_address"` // TAG
	DstAddress string    `json:"dst_address"` // TAG
	MsgID      string    `json:"msg_id"`
	DstPort    uint32    `json:"dst_port"`
	Bytes      int       `json:"bytes"`
	Recipients int       `json:"recipients"`
	Delivered  int       `json:"delivered"`
	Unknown    bool      `json:"unknown_destination"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// LinkTableName holds the table name used when writing link state to
// GreptimeDB. Overridable via the LINK_STATE_TABLE environment
// variable.
var LinkTableName = func() string {
	if env := os.Getenv("LINK_STATE_TABLE"); env != "" {
		return env
	}
	return "swarm_link_state"
}()

// DeliveryTableName holds the table name for delivery rows,
// overridable via DELIVERY_TABLE.
var DeliveryTableName = func() string {
	if env := os.Getenv("DELIVERY_TABLE"); env != "" {
		return env
	}
	return "swarm_delivery"
}()

func (LinkStateRow) TableName() string { return LinkTableName }

func (DeliveryRow) TableName() string { return DeliveryTableName }

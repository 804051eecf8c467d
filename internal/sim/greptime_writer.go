package sim

import (
	"context"
	"log"

	"swarmnet-sim/internal/telemetry"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// GreptimeDBWriter writes link state and delivery rows to GreptimeDB
// via the ingester client.
type GreptimeDBWriter struct {
	client        greptime.Client
	db            string
	linkTable     string
	deliveryTable string
}

// NewGreptimeDBWriter creates a new GreptimeDB writer and auto-creates
// both tables if needed.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	ctx := ingesterContext.NewContext(context.Background())
	client, err := greptime.NewClient(ctx, &greptime.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	linkTable := telemetry.LinkTableName
	deliveryTable := telemetry.DeliveryTableName

	linkDDL := `
CREATE TABLE IF NOT EXISTS ` + linkTable + ` (
  cluster_id STRING TAG,
  address STRING TAG,
  x DOUBLE,
  y DOUBLE,
  z DOUBLE,
  neighbor_count BIGINT,
  on_outage BOOLEAN,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')
`
	if _, err := client.SQL(ctx, linkDDL); err != nil {
		return nil, err
	}

	deliveryDDL := `
CREATE TABLE IF NOT EXISTS ` + deliveryTable + ` (
  cluster_id STRING TAG,
  src_address STRING TAG,
  dst_address STRING TAG,
  msg_id STRING,
  dst_port BIGINT,
  bytes BIGINT,
  recipients BIGINT,
  delivered BIGINT,
  unknown BOOLEAN,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')
`
	if _, err := client.SQL(ctx, deliveryDDL); err != nil {
		return nil, err
	}

	return &GreptimeDBWriter{
		client:        client,
		db:            database,
		linkTable:     linkTable,
		deliveryTable: deliveryTable,
	}, nil
}

// WriteLinkState inserts a single link state row.
func (w *GreptimeDBWriter) WriteLinkState(row telemetry.LinkStateRow) error {
	return w.WriteLinkStates([]telemetry.LinkStateRow{row})
}

// WriteLinkStates inserts multiple link state rows.
func (w *GreptimeDBWriter) WriteLinkStates(rows []telemetry.LinkStateRow) error {
	if len(rows) == 0 {
		return nil
	}

	ctx := ingesterContext.NewContext(context.Background())

	tbl := table.New(w.linkTable)
	tbl.AddTagColumn("cluster_id", types.StringType, 0)
	tbl.AddTagColumn("address", types.StringType, 0)
	tbl.AddFieldColumn("x", types.Float64Type)
	tbl.AddFieldColumn("y", types.Float64Type)
	tbl.AddFieldColumn("z", types.Float64Type)
	tbl.AddFieldColumn("neighbor_count", types.Int64Type)
	tbl.AddFieldColumn("on_outage", types.BooleanType)
	tbl.SetTimeIndex("ts", types.TimestampType)

	for _, r := range rows {
		tbl.AppendTagValue("cluster_id", r.ClusterID)
		tbl.AppendTagValue("address", r.Address)
		tbl.AppendFieldValue("x", r.X)
		tbl.AppendFieldValue("y", r.Y)
		tbl.AppendFieldValue("z", r.Z)
		tbl.AppendFieldValue("neighbor_count", int64(r.NeighborCount))
		tbl.AppendFieldValue("on_outage", r.OnOutage)
		tbl.AppendTimeIndex(r.Timestamp)
	}

	if err := w.client.Write(ctx, w.db, []*table.Table{tbl}); err != nil {
		log.Printf("[GreptimeDBWriter] link state write failed: %v", err)
		return err
	}
	return nil
}

// WriteDelivery inserts a single delivery row.
func (w *GreptimeDBWriter) WriteDelivery(row telemetry.DeliveryRow) error {
	return w.WriteDeliveries([]telemetry.DeliveryRow{row})
}

// WriteDeliveries inserts multiple delivery rows.
func (w *GreptimeDBWriter) WriteDeliveries(rows []telemetry.DeliveryRow) error {
	if len(rows) == 0 {
		return nil
	}

	ctx := ingesterContext.NewContext(context.Background())

	tbl := table.New(w.deliveryTable)
	tbl.AddTagColumn("cluster_id", types.StringType, 0)
	tbl.AddTagColumn("src_address", types.StringType, 0)
	tbl.AddTagColumn("dst_address", types.StringType, 0)
	tbl.AddFieldColumn("msg_id", types.StringType)
	tbl.AddFieldColumn("dst_port", types.Int64Type)
	tbl.AddFieldColumn("bytes", types.Int64Type)
	tbl.AddFieldColumn("recipients", types.Int64Type)
	tbl.AddFieldColumn("delivered", types.Int64Type)
	tbl.AddFieldColumn("unknown", types.BooleanType)
	tbl.SetTimeIndex("ts", types.TimestampType)

	for _, r := range rows {
		tbl.AppendTagValue("cluster_id", r.ClusterID)
		tbl.AppendTagValue("src_address", r.SrcAddress)
		tbl.AppendTagValue("dst_address", r.DstAddress)
		tbl.AppendFieldValue("msg_id", r.MsgID)
		tbl.AppendFieldValue("dst_port", int64(r.DstPort))
		tbl.AppendFieldValue("bytes", int64(r.Bytes))
		tbl.AppendFieldValue("recipients", int64(r.Recipients))
		tbl.AppendFieldValue("delivered", int64(r.Delivered))
		tbl.AppendFieldValue("unknown", r.Unknown)
		tbl.AppendTimeIndex(r.Timestamp)
	}

	if err := w.client.Write(ctx, w.db, []*table.Table{tbl}); err != nil {
		log.Printf("[GreptimeDBWriter] delivery write failed: %v", err)
		return err
	}
	return nil
}

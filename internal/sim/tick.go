package sim

import (
	"context"
	"time"

	"swarmnet-sim/internal/comms"
	"swarmnet-sim/internal/logging"
	"swarmnet-sim/internal/telemetry"
)

// Run starts the simulation loop and stops when the context is done.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "tick_interval", s.tickInterval, "nodes", len(s.robots)+1)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Info("stopping simulator")
			s.broker.Stop()
			return
		}
	}
}

// tick advances the simulation one step: move robots, recompute
// connectivity, generate traffic, dispatch, and write telemetry.
func (s *Simulator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)
	start := time.Now()

	s.mu.Lock()
	s.simTime += s.tickInterval
	now := s.simTime
	s.stats.Ticks++
	s.mu.Unlock()

	s.moveRobots()
	s.engine.Update(now, s.tickInterval)

	// Application traffic: every robot broadcasts its beacon and
	// reports to the base station.
	sent := 0
	for _, r := range s.robots {
		data := s.beacon(r)
		if err := r.Client.Send(data, comms.Broadcast, comms.DefaultPort); err != nil {
			log.Error("beacon broadcast failed", "address", r.Client.Address(), "err", err)
		} else {
			sent++
		}
		if err := r.Client.Send(data, comms.BaseStation, comms.BasePort); err != nil {
			log.Error("base report failed", "address", r.Client.Address(), "err", err)
		} else {
			sent++
		}
	}

	reports := s.broker.Dispatch(ctx)

	linkRows, deliveryRows := s.collectRows(reports)
	s.writeLinkRows(ctx, linkRows)
	s.writeDeliveryRows(ctx, deliveryRows)

	delivered, unknown := 0, 0
	for _, rep := range reports {
		delivered += rep.Delivered
		if rep.UnknownDest {
			unknown++
		}
	}
	s.mu.Lock()
	s.stats.Sent += sent
	s.stats.Delivered += delivered
	s.stats.UnknownDest += unknown
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveTick(time.Since(start))
		s.metrics.AddSent(sent)
		s.metrics.AddDelivered(delivered)
		s.metrics.AddUnknownDestination(unknown)
		nodes, links := s.engine.Snapshot()
		outages, neighborLinks := 0, 0
		for _, n := range nodes {
			if n.OnOutage {
				outages++
			}
		}
		for _, l := range links {
			if l.Neighbor {
				neighborLinks++
			}
		}
		s.metrics.SetOutages(outages)
		s.metrics.SetNeighborLinks(neighborLinks)
	}
}

// collectRows converts the engine snapshot and dispatch reports into
// telemetry rows.
func (s *Simulator) collectRows(reports []comms.DeliveryReport) ([]telemetry.LinkStateRow, []telemetry.DeliveryRow) {
	ts := s.now().UTC()
	nodes, _ := s.engine.Snapshot()

	linkRows := make([]telemetry.LinkStateRow, 0, len(nodes))
	for _, n := range nodes {
		linkRows = append(linkRows, telemetry.LinkStateRow{
			ClusterID:     s.clusterID,
			Address:       n.Address,
			X:             n.Position.X,
			Y:             n.Position.Y,
			Z:             n.Position.Z,
			NeighborCount: len(n.Neighbors),
			OnOutage:      n.OnOutage,
			Timestamp:     ts,
		})
	}

	deliveryRows := make([]telemetry.DeliveryRow, 0, len(reports))
	for _, rep := range reports {
		deliveryRows = append(deliveryRows, telemetry.DeliveryRow{
			ClusterID:  s.clusterID,
			SrcAddress: rep.Datagram.SrcAddress,
			DstAddress: rep.Datagram.DstAddress,
			MsgID:      rep.Datagram.MsgID,
			DstPort:    rep.Datagram.DstPort,
			Bytes:      len(rep.Datagram.Data),
			Recipients: len(rep.Datagram.Recipients),
			Delivered:  rep.Delivered,
			Unknown:    rep.UnknownDest,
			Timestamp:  ts,
		})
	}
	return linkRows, deliveryRows
}

// writeLinkRows uses batch mode when the writer supports it.
func (s *Simulator) writeLinkRows(ctx context.Context, rows []telemetry.LinkStateRow) {
	if s.linkWriter == nil || len(rows) == 0 {
		return
	}
	log := logging.FromContext(ctx)
	if bw, ok := s.linkWriter.(batchLinkWriter); ok {
		if err := bw.WriteLinkStates(rows); err != nil {
			log.Error("link state batch write failed", "err", err)
		}
		return
	}
	for _, row := range rows {
		if err := s.linkWriter.WriteLinkState(row); err != nil {
			log.Error("link state write failed", "address", row.Address, "err", err)
		}
	}
}

func (s *Simulator) writeDeliveryRows(ctx context.Context, rows []telemetry.DeliveryRow) {
	if s.deliveryWriter == nil || len(rows) == 0 {
		return
	}
	log := logging.FromContext(ctx)
	if bw, ok := s.deliveryWriter.(batchDeliveryWriter); ok {
		if err := bw.WriteDeliveries(rows); err != nil {
			log.Error("delivery batch write failed", "err", err)
		}
		return
	}
	for _, row := range rows {
		if err := s.deliveryWriter.WriteDelivery(row); err != nil {
			log.Error("delivery write failed", "msg_id", row.MsgID, "err", err)
		}
	}
}

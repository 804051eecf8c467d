package main

import (
	"os"

	"swarmnet-sim/internal/config"
	"swarmnet-sim/internal/sim"
)

// newWriters sets up link state and delivery writers based on flags and
// env vars. It returns the writers and a cleanup function to close any
// resources.
func newWriters(cfg *config.SimulationConfig, printOnly, jsonOut, tui bool, logFile string) (sim.LinkWriter, sim.DeliveryWriter, func(), error) {
	closers := []func(){}
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	linkWriter, deliveryWriter, closer, err := baseWriters(cfg, printOnly, jsonOut, tui)
	if err != nil {
		return nil, nil, nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	lws := []sim.LinkWriter{linkWriter}
	dws := []sim.DeliveryWriter{deliveryWriter}

	if logFile != "" {
		fw, err := sim.NewFileWriter(logFile, logFile+".deliveries")
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		closers = append(closers, func() { _ = fw.Close() })
		lws = append(lws, fw)
		dws = append(dws, fw)
	}

	if cfg.SQLitePath != "" {
		sw, err := sim.NewSQLiteWriter(cfg.SQLitePath)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		closers = append(closers, func() { _ = sw.Close() })
		lws = append(lws, sw)
		dws = append(dws, sw)
	}

	if len(lws) == 1 && len(dws) == 1 {
		return linkWriter, deliveryWriter, cleanup, nil
	}
	mw := sim.NewMultiWriter(lws, dws)
	return mw, mw, cleanup, nil
}

// baseWriters chooses the primary writer from the output flags and the
// GreptimeDB env vars.
func baseWriters(cfg *config.SimulationConfig, printOnly, jsonOut, tui bool) (sim.LinkWriter, sim.DeliveryWriter, func(), error) {
	if tui {
		tw := sim.NewTUIWriter(cfg)
		return tw, tw, func() { _ = tw.Close() }, nil
	}
	if jsonOut {
		jw := sim.NewJSONStdoutWriter()
		return jw, jw, nil, nil
	}
	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		sw := sim.NewStdoutWriter()
		return sw, sw, nil, nil
	}

	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	w, err := sim.NewGreptimeDBWriter(endpoint, "public")
	if err != nil {
		return nil, nil, nil, err
	}
	return w, w, nil, nil
}

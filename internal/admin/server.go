// Admin HTTP surface: topology inspection, metrics, and traffic injection.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"swarmnet-sim/internal/comms"
	"swarmnet-sim/internal/observability"
	"swarmnet-sim/internal/sim"
	"swarmnet-sim/internal/world"
)

// sendSchema validates POST /send bodies before they reach the broker.
const sendSchema = `{
  "type": "object",
  "required": ["src", "dst", "data"],
  "properties": {
    "src":  {"type": "string", "minLength": 1},
    "dst":  {"type": "string", "minLength": 1},
    "port": {"type": "integer", "minimum": 0, "maximum": 65535},
    "data": {"type": "string"}
  },
  "additionalProperties": false
}`

// Server exposes the running simulation over HTTP.
type Server struct {
	Sim     *sim.Simulator
	metrics *observability.Collector
	log     *slog.Logger

	upgrader   websocket.Upgrader
	sendChecks *jsonschema.Schema
}

// NewServer builds the admin server around a running simulator.
func NewServer(s *sim.Simulator, metrics *observability.Collector, log *slog.Logger) *Server {
	schema := jsonschema.MustCompileString("send.json", sendSchema)
	return &Server{
		Sim:     s,
		metrics: metrics,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendChecks: schema,
	}
}

// Routes registers all handlers on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/topology", s.handleTopology)
	mux.HandleFunc("/neighbors", s.handleNeighbors)
	mux.HandleFunc("/send", s.handleSend)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// Start serves the admin API on addr and blocks.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

type topologyResponse struct {
	Nodes     []comms.NodeState `json:"nodes"`
	Links     []comms.LinkState `json:"links"`
	Obstacles []world.Box       `json:"obstacles"`
	Stats     sim.Stats         `json:"stats"`
}

func (s *Server) topology() topologyResponse {
	nodes, links := s.Sim.Engine().Snapshot()
	return topologyResponse{
		Nodes:     nodes,
		Links:     links,
		Obstacles: s.Sim.Obstacles(),
		Stats:     s.Sim.Stats(),
	}
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.topology())
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "missing address parameter", http.StatusBadRequest)
		return
	}
	if !s.Sim.Engine().Registered(address) {
		http.Error(w, "unknown address", http.StatusNotFound)
		return
	}
	neighbors := s.Sim.Neighbors(address)
	if neighbors == nil {
		neighbors = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"address":   address,
		"neighbors": neighbors,
	})
}

type sendRequest struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Port uint32 `json:"port"`
	Data string `json:"data"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var raw any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.sendChecks.Validate(raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Re-decode into the typed request; the schema already vouched for it.
	buf, _ := json.Marshal(raw)
	var req sendRequest
	_ = json.Unmarshal(buf, &req)
	if req.Port == 0 {
		req.Port = comms.DefaultPort
	}

	err := s.Sim.Inject(req.Src, []byte(req.Data), req.Dst, req.Port)
	switch {
	case errors.Is(err, comms.ErrPayloadTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"ticks":  s.Sim.Stats().Ticks,
	})
}

// handleWS streams topology snapshots once per second until the client
// goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(s.topology()); err != nil {
				s.log.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

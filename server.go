package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/clingy"
	"github.com/zeebo/errs/v2"
	"gopkg.in/yaml.v3"

	"loov.dev/tracemodel/history"
	"loov.dev/tracemodel/import/tef"
	"loov.dev/tracemodel/model"
)

const wsWriteTimeout = 5 * time.Second

type serveConfig struct {
	Addr string `yaml:"addr"`
	// MaxUploadBytes caps POST /api/parse bodies.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		Addr:           ":8077",
		MaxUploadBytes: 256 << 20,
	}
}

func loadServeConfig(path string) (serveConfig, error) {
	if path == "" {
		return defaultServeConfig(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return serveConfig{}, errs.Wrap(err)
	}
	cfg := defaultServeConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return serveConfig{}, errs.Errorf("parse config %q: %w", path, err)
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultServeConfig().Addr
	}
	return cfg, nil
}

type cmdServe struct {
	config string
	addr   string
}

func (cmd *cmdServe) Setup(params clingy.Parameters) {
	cmd.config = params.Flag("config", "yaml configuration file", "").(string)
	cmd.addr = params.Flag("addr", "listen address (overrides config)", "").(string)
}

func (cmd *cmdServe) Execute(ctx clingy.Context) error {
	cfg, err := loadServeConfig(cmd.config)
	if err != nil {
		return err
	}
	if cmd.addr != "" {
		cfg.Addr = cmd.addr
	}

	m, err := model.New()
	if err != nil {
		return err
	}

	srv := newServer(cfg, m)
	logrus.WithField("addr", cfg.Addr).Info("listening")
	return errs.Wrap(http.ListenAndServe(cfg.Addr, srv.routes()))
}

// server bridges model lifecycle updates to websocket listeners and keeps
// the recording history for navigation.
type server struct {
	cfg     serveConfig
	model   *model.Model
	history *history.Manager
	log     *logrus.Logger

	// The model is single-threaded; parseMu serializes uploads.
	parseMu sync.Mutex

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

func newServer(cfg serveConfig, m *model.Model) *server {
	s := &server{
		cfg:     cfg,
		model:   m,
		history: history.NewManager(),
		log:     logrus.StandardLogger(),
		conns:   map[*websocket.Conn]struct{}{},
	}
	m.Observe(s.broadcastUpdate)
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/parse", s.handleParse)
	mux.HandleFunc("/api/recordings", s.handleRecordings)
	mux.HandleFunc("/api/recordings/navigate", s.handleNavigate)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

type recordingInfo struct {
	Index  int            `json:"index"`
	Name   string         `json:"name"`
	Events int            `json:"events"`
	Meta   model.Metadata `json:"metadata"`
}

func (s *server) recordingInfo(index int) (recordingInfo, bool) {
	parsed, ok := s.model.ParsedTrace(index)
	if !ok {
		return recordingInfo{}, false
	}
	name, _ := s.model.Name(index)
	return recordingInfo{
		Index:  index,
		Name:   name,
		Events: len(parsed.Events),
		Meta:   parsed.Metadata,
	}, true
}

func (s *server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	file, err := tef.Decode(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	events, md := tef.Convert(file)

	s.parseMu.Lock()
	defer s.parseMu.Unlock()

	if err := s.model.Parse(events, md, false); err != nil {
		s.log.WithError(err).Warn("parse failed")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	index := s.model.Size() - 1
	info, _ := s.recordingInfo(index)
	parsed, _ := s.model.ParsedTrace(index)
	s.history.AddRecording(history.Entry{Name: info.Name, Trace: parsed})
	s.log.WithFields(logrus.Fields{"name": info.Name, "events": info.Events}).Info("recording parsed")

	writeJSON(w, http.StatusOK, info)
}

func (s *server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	s.parseMu.Lock()
	defer s.parseMu.Unlock()

	infos := make([]recordingInfo, 0, s.model.Size())
	for i := 0; i < s.model.Size(); i++ {
		info, _ := s.recordingInfo(i)
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil {
		http.Error(w, "offset must be an integer", http.StatusBadRequest)
		return
	}

	s.parseMu.Lock()
	entry, ok := s.history.Navigate(offset)
	s.parseMu.Unlock()
	if !ok {
		http.Error(w, "no recording at that offset", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   entry.Name,
		"events": len(entry.Trace.Events),
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()

	// Reads are only used to notice the peer going away.
	go func() {
		defer s.dropConn(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *server) dropConn(conn *websocket.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
	_ = conn.Close()
}

type updatePayload struct {
	Kind  string `json:"kind"`
	Done  int    `json:"done,omitempty"`
	Total int    `json:"total,omitempty"`
	Index int    `json:"index,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *server) broadcastUpdate(u model.Update) {
	payload := updatePayload{Done: u.Done, Total: u.Total, Index: u.Index}
	switch u.Kind {
	case model.UpdateProgress:
		payload.Kind = "progress"
	case model.UpdateComplete:
		payload.Kind = "complete"
	case model.UpdateDone:
		payload.Kind = "done"
		if u.Err != nil {
			payload.Error = u.Err.Error()
		}
	}

	s.connMu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.connMu.Unlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(payload); err != nil {
			s.dropConn(conn)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

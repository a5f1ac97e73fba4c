// Package api serves the UI: a WebSocket for live state (playback,
// voice phases, transcripts) and a small REST surface for the saved
// content collections.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"heyhost/feed"
	"heyhost/internal/config"
	"heyhost/player"
	"heyhost/store"
	"heyhost/threads"
	"heyhost/voice"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	Config  *config.Config
	Clips   *store.Clips
	QAs     *store.QAs
	Player  *player.Controller
	Machine *voice.Machine

	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	episodes []feed.Episode
}

func NewServer(
	cfg *config.Config,
	clips *store.Clips,
	qas *store.QAs,
	pl *player.Controller,
	machine *voice.Machine,
) *Server {
	s := &Server{
		Config:  cfg,
		Clips:   clips,
		QAs:     qas,
		Player:  pl,
		Machine: machine,
		clients: make(map[*websocket.Conn]bool),
	}
	s.setupCallbacks()
	return s
}

// SetEpisodes installs the fetched feed.
func (s *Server) SetEpisodes(episodes []feed.Episode) {
	s.mu.Lock()
	s.episodes = episodes
	s.mu.Unlock()
}

func (s *Server) episodeByID(id string) (feed.Episode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ep := range s.episodes {
		if ep.ID == id {
			return ep, true
		}
	}
	return feed.Episode{}, false
}

func (s *Server) Start() {
	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/api/episodes", s.handleEpisodes)
	http.HandleFunc("/api/clips/", s.handleClipsAPI)
	http.HandleFunc("/api/qas/", s.handleQAsAPI)
	http.HandleFunc("/api/threads/", s.handleThreadsAPI)
	http.HandleFunc("/api/player/", s.handlePlayerAPI)

	log.Printf("[API] Listening on :%s", s.Config.Port)
	if err := http.ListenAndServe(":"+s.Config.Port, nil); err != nil {
		log.Fatal("ListenAndServe:", err)
	}
}

func (s *Server) setupCallbacks() {
	if s.Player != nil {
		s.Player.SetOnChange(func(state player.State) {
			s.broadcast(Message{Type: "player_state", Player: &state})
		})
	}
	if s.Machine != nil {
		s.Machine.SetOnPhase(func(p voice.Phase) {
			s.broadcast(Message{Type: "voice_phase", Phase: string(p)})
		})
		s.Machine.SetOnTranscript(func(role, text string) {
			s.broadcast(Message{Type: "transcript", Role: role, Text: text})
		})
		s.Machine.SetOnNotice(func(text string, d time.Duration) {
			s.broadcast(Message{Type: "notice", Text: text, DurationMs: d.Milliseconds()})
		})
	}
}

func (s *Server) broadcast(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Writes to all clients are serialized under s.mu; gorilla's
	// WriteJSON is not safe for concurrent use per connection.
	for conn := range s.clients {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[API] Write error: %v", err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade:", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Println("Read:", err)
			break
		}
		s.processMessage(conn, msg)
	}
}

func (s *Server) processMessage(conn *websocket.Conn, msg Message) {
	switch msg.Type {
	case "get_episodes":
		s.mu.Lock()
		episodes := s.episodes
		s.mu.Unlock()
		conn.WriteJSON(Message{Type: "episodes_list", Episodes: episodes})

	case "get_player":
		state := s.Player.Snapshot()
		conn.WriteJSON(Message{Type: "player_state", Player: &state})

	case "get_clips":
		conn.WriteJSON(Message{Type: "clips_list", Clips: s.Clips.All()})

	case "get_qas":
		if msg.Query != "" {
			conn.WriteJSON(Message{Type: "qas_list", QAs: s.QAs.Search(msg.Query)})
			return
		}
		conn.WriteJSON(Message{Type: "qas_list", QAs: s.QAs.All()})

	case "get_threads":
		conn.WriteJSON(Message{Type: "threads_list", Threads: threads.Group(s.QAs.All())})

	case "play_episode":
		ep, ok := s.episodeByID(msg.EpisodeID)
		if !ok {
			conn.WriteJSON(Message{Type: "error", Error: "episode not found: " + msg.EpisodeID})
			return
		}
		s.Player.PlayEpisode(ep)

	case "toggle_play":
		s.Player.Dispatch(player.CmdTogglePlay)

	case "pause":
		s.Player.Dispatch(player.CmdPause)

	case "resume":
		s.Player.Dispatch(player.CmdResume)

	case "skip_forward":
		s.Player.Dispatch(player.CmdSkipForward)

	case "skip_backward":
		s.Player.Dispatch(player.CmdSkipBackward)

	case "seek":
		s.Player.Seek(msg.Seconds)

	case "set_volume":
		s.Player.SetVolume(msg.Value)

	case "toggle_mute":
		s.Player.ToggleMute()

	case "set_speed":
		s.Player.SetSpeed(msg.Value)

	case "play_clip":
		clip, ok := s.Clips.Get(msg.ClipID)
		if !ok {
			conn.WriteJSON(Message{Type: "error", Error: "clip not found: " + msg.ClipID})
			return
		}
		ep, ok := s.episodeByID(clip.EpisodeID)
		if !ok {
			conn.WriteJSON(Message{Type: "error", Error: "episode not found for clip " + msg.ClipID})
			return
		}
		s.Player.PlayClip(clip, ep.AudioURL)

	case "stop_clip":
		s.Player.StopClip()

	case "delete_clip":
		s.Clips.Delete(msg.ClipID)
		s.broadcast(Message{Type: "clips_list", Clips: s.Clips.All()})

	case "delete_qa":
		s.QAs.Delete(msg.ClipID)
		s.broadcast(Message{Type: "qas_list", QAs: s.QAs.All()})

	case "delete_thread":
		s.deleteThread(msg.ThreadID)
		s.broadcast(Message{Type: "threads_list", Threads: threads.Group(s.QAs.All())})
	}
}

// deleteThread removes every saved pair referenced by the thread's
// messages.
func (s *Server) deleteThread(threadID string) int {
	for _, t := range threads.Group(s.QAs.All()) {
		if t.ID == threadID {
			return s.QAs.DeleteMany(threads.QAIDs(t))
		}
	}
	return 0
}

func corsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mu.Lock()
	episodes := s.episodes
	s.mu.Unlock()
	writeJSON(w, episodes)
}

func (s *Server) handleClipsAPI(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/clips/")
	if path == "" {
		writeJSON(w, s.Clips.All())
		return
	}

	if id, ok := strings.CutSuffix(path, "/trim"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req TrimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		clip, ok := s.Clips.Trim(id, req.StartTime, req.EndTime)
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.broadcast(Message{Type: "clips_list", Clips: s.Clips.All()})
		writeJSON(w, clip)
		return
	}

	switch r.Method {
	case http.MethodGet:
		clip, ok := s.Clips.Get(path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, clip)
	case http.MethodDelete:
		if !s.Clips.Delete(path) {
			http.NotFound(w, r)
			return
		}
		s.broadcast(Message{Type: "clips_list", Clips: s.Clips.All()})
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleQAsAPI(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/qas/")
	if path == "" {
		if q := r.URL.Query().Get("q"); q != "" {
			writeJSON(w, s.QAs.Search(q))
			return
		}
		writeJSON(w, s.QAs.All())
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.QAs.Delete(path) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePlayerAPI mirrors the WebSocket player commands for plain HTTP
// clients. GET returns the state snapshot; POST /api/player/{command}
// applies a control.
func (s *Server) handlePlayerAPI(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	command := strings.TrimPrefix(r.URL.Path, "/api/player/")
	if command == "" {
		writeJSON(w, s.Player.Snapshot())
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		EpisodeID string  `json:"episodeId"`
		Seconds   float64 `json:"seconds"`
		Value     float64 `json:"value"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	switch command {
	case "play":
		ep, ok := s.episodeByID(body.EpisodeID)
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.Player.PlayEpisode(ep)
	case "toggle":
		s.Player.Dispatch(player.CmdTogglePlay)
	case "pause":
		s.Player.Dispatch(player.CmdPause)
	case "resume":
		s.Player.Dispatch(player.CmdResume)
	case "skip-forward":
		s.Player.Dispatch(player.CmdSkipForward)
	case "skip-backward":
		s.Player.Dispatch(player.CmdSkipBackward)
	case "seek":
		s.Player.Seek(body.Seconds)
	case "volume":
		s.Player.SetVolume(body.Value)
	case "mute":
		s.Player.ToggleMute()
	case "speed":
		s.Player.SetSpeed(body.Value)
	default:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, s.Player.Snapshot())
}

func (s *Server) handleThreadsAPI(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/threads/")
	if path == "" {
		writeJSON(w, threads.Group(s.QAs.All()))
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.deleteThread(path) == 0 {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

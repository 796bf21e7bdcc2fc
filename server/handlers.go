package server

import (
	"encoding/json"
	"net/http"
)

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

type statusResponse struct {
	Live              bool `json:"live"`
	WatcherEnabled    bool `json:"watcher_enabled"`
	OpenTickets       int  `json:"open_tickets"`
	PendingChallenges int  `json:"pending_challenges"`
}

// handleStatus reports a snapshot of the in-memory state for dashboards and
// debugging.
func (d Deps) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		WatcherEnabled:    d.Watcher != nil,
		OpenTickets:       d.Tickets.Count(),
		PendingChallenges: d.Challenges.Pending(),
	}
	if d.Watcher != nil {
		resp.Live = d.Watcher.Live()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type memberJoinEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	GuildID  string `json:"guild_id"`
}

// handleMemberJoin accepts a forwarded guild member add event and fires the
// best-effort welcome DM.
func (d Deps) handleMemberJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var ev memberJoinEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.UserID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	d.Dispatcher.HandleMemberJoin(r.Context(), memberJoinToBot(ev))
	w.WriteHeader(http.StatusAccepted)
}

type messageEvent struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	IsAdmin   bool   `json:"is_admin"`
}

type messageEventResponse struct {
	Reply string `json:"reply,omitempty"`
}

// handleMessage accepts a forwarded message create event (for the broadcast
// prefix command) and returns the reply text the forwarder should post back,
// if any.
func (d Deps) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var ev messageEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.ChannelID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	reply := d.Dispatcher.HandleMessage(r.Context(), messageToBot(ev))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(messageEventResponse{Reply: reply.Text})
}

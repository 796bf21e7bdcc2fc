package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mostwantedrp/guardbot/discordapi"
	"github.com/mostwantedrp/guardbot/ticket"
	"github.com/mostwantedrp/guardbot/twitchapi"
)

func TestTicketChannelsCreate(t *testing.T) {
	var createBody discordapi.ChannelCreate
	var introBody discordapi.Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guilds/g-1/channels":
			if err := json.NewDecoder(r.Body).Decode(&createBody); err != nil {
				t.Fatalf("decode channel create: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "c-55"})
		case "/channels/c-55/messages":
			if err := json.NewDecoder(r.Body).Decode(&introBody); err != nil {
				t.Fatalf("decode intro message: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	tc := &TicketChannels{
		Discord: &discordapi.Client{Token: "t", BaseURL: server.URL},
		GuildID: "g-1",
	}
	cat, _ := ticket.CategoryByID("bug")

	id, err := tc.CreateTicketChannel(context.Background(), "u-7", cat)
	if err != nil {
		t.Fatalf("CreateTicketChannel() error = %v", err)
	}
	if id != "c-55" {
		t.Errorf("channel id = %q, want c-55", id)
	}
	if createBody.Name != "ticket-u-7" {
		t.Errorf("channel name = %q, want ticket-u-7", createBody.Name)
	}

	// @everyone denied view, owner allowed view+send.
	if len(createBody.PermissionOverwrites) != 2 {
		t.Fatalf("overwrites = %d, want 2", len(createBody.PermissionOverwrites))
	}
	everyone := createBody.PermissionOverwrites[0]
	owner := createBody.PermissionOverwrites[1]
	if everyone.ID != "g-1" || everyone.Deny != "1024" {
		t.Errorf("everyone overwrite = %+v, want deny view (1024)", everyone)
	}
	if owner.ID != "u-7" || owner.Allow != "3072" {
		t.Errorf("owner overwrite = %+v, want allow view+send (3072)", owner)
	}

	// Intro message carries the close button.
	if len(introBody.Components) != 1 || len(introBody.Components[0].Components) != 1 {
		t.Fatalf("intro components = %+v, want one action row with one button", introBody.Components)
	}
	button := introBody.Components[0].Components[0]
	if button.CustomID != CustomIDCloseTicket {
		t.Errorf("button custom id = %q, want %q", button.CustomID, CustomIDCloseTicket)
	}
	if len(introBody.Embeds) != 1 || !strings.Contains(introBody.Embeds[0].Title, cat.Label) {
		t.Errorf("intro embed = %+v, want title with category label", introBody.Embeds)
	}
}

func TestTicketChannelsCreateSurvivesIntroFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guilds/g-1/channels":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "c-56"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	tc := &TicketChannels{Discord: &discordapi.Client{Token: "t", BaseURL: server.URL}, GuildID: "g-1"}
	cat, _ := ticket.CategoryByID("geral")

	id, err := tc.CreateTicketChannel(context.Background(), "u-7", cat)
	if err != nil {
		t.Fatalf("CreateTicketChannel() error = %v (intro failure must not fail the ticket)", err)
	}
	if id != "c-56" {
		t.Errorf("channel id = %q, want c-56", id)
	}
}

func TestLiveAnnouncer(t *testing.T) {
	var sent discordapi.Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/alert-1/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&sent)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	announce := LiveAnnouncer(&discordapi.Client{Token: "t", BaseURL: server.URL}, "alert-1", "mostwantedrp")
	if err := announce(context.Background(), twitchapi.Stream{Title: "RP night"}); err != nil {
		t.Fatalf("announce error = %v", err)
	}
	if len(sent.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(sent.Embeds))
	}
	if !strings.Contains(sent.Embeds[0].Description, "twitch.tv/mostwantedrp") {
		t.Errorf("embed description %q should link the stream", sent.Embeds[0].Description)
	}
}

package bot

import (
	"context"
	"fmt"

	"github.com/mostwantedrp/guardbot/discordapi"
	"github.com/mostwantedrp/guardbot/twitchapi"
	"github.com/mostwantedrp/guardbot/watch"
)

// LiveAnnouncer returns the became-live side effect for the watcher: an embed
// in the alert channel pointing at the Twitch stream.
func LiveAnnouncer(d *discordapi.Client, alertChannelID, twitchChannel string) watch.AnnounceFunc {
	return func(ctx context.Context, stream twitchapi.Stream) error {
		return d.SendMessage(ctx, alertChannelID, discordapi.Message{
			Embeds: []discordapi.Embed{{
				Title:       "🚨 A live começou!",
				Description: fmt.Sprintf("🎥 **%s está AO VIVO!**\nVem assistir 👉 https://twitch.tv/%s", twitchChannel, twitchChannel),
				Color:       0xed4245, // discord red
			}},
		})
	}
}

package telegram

import (
	"fmt"

	"mediagrab/internal/delivery"
)

// User-visible texts. These are the only strings users ever see; engine and
// pipeline errors never cross this boundary unconverted.
const (
	msgGreeting     = "👋 Hi! Send me a YouTube, TikTok or Instagram link and pick Video, Audio or Image."
	msgNoURL        = "❌ Please send a valid link."
	msgChooseFormat = "Which format do you want?"
	msgBadRequest   = "❌ Malformed request."
	msgExpired      = "❌ That link has expired. Please send it again."
	msgWorking      = "⏳ Downloading… please wait."
	msgBusy         = "⌛ I'm handling too many downloads right now, please try again in a minute."
	msgNoMedia      = "❌ No media found, or the post is private/removed. For private content, configure COOKIES_TXT."
)

// outcomeMessage maps a delivery outcome to the user-facing reply. Inline
// deliveries already put the media itself in the chat, so they need no text.
func outcomeMessage(out delivery.Outcome) string {
	switch out.Status {
	case delivery.StatusInline:
		return ""
	case delivery.StatusRemoteLink:
		return "📦 The file is too big to send here. Download it from:\n" + out.URL
	case delivery.StatusLocalLink:
		return "📦 The file is too big to send here. Download it from:\n" + out.URL
	case delivery.StatusTooLarge:
		return fmt.Sprintf("❌ The file is too large (%s) and exceeds the configured limit.", out.Size)
	default:
		return "❌ Delivery failed: " + out.Reason
	}
}

package prompt

import (
	"time"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/discord"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/message"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/store"
)

// Loader animates a placeholder "loading" message with a growing ellipsis.
// While the animation runs the placeholder's waiting flag is held, so a
// replacement edit arriving mid-animation waits for the last frame to land
// instead of being overwritten by it.
type Loader struct {
	placeholders *store.PlaceholderStore

	// FrameDelay is the pause between animation frames.
	FrameDelay time.Duration
	// Frames is the number of ellipsis steps appended to the text.
	Frames int
}

// NewLoader creates a loader over the placeholder store.
func NewLoader(placeholders *store.PlaceholderStore) *Loader {
	return &Loader{
		placeholders: placeholders,
		FrameDelay:   800 * time.Millisecond,
		Frames:       3,
	}
}

// Run binds the placeholder link to the message and plays the animation to
// completion. It blocks for the duration of the animation; callers run it
// on their own goroutine.
func (l *Loader) Run(session discord.Session, channelID, messageID, placeholderID, text string) {
	l.placeholders.Bind(placeholderID, messageID)
	l.placeholders.SetWaiting(placeholderID, true)
	defer l.placeholders.SetWaiting(placeholderID, false)

	dots := ""
	for frame := 0; frame < l.Frames; frame++ {
		time.Sleep(l.FrameDelay)
		// Stop animating once the binding is gone: the real content is
		// about to replace this message.
		if !l.placeholders.Bound(placeholderID) {
			return
		}
		dots += " ."
		if err := session.Edit(channelID, messageID, message.Outgoing{Content: text + dots}); err != nil {
			logger.DebugCF("prompt", "Placeholder animation edit failed", map[string]interface{}{
				"messageId": messageID, "error": err.Error(),
			})
			return
		}
	}
}

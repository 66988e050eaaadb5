// Package trigger owns the trigger definitions received from workflow
// processes and matches incoming channel messages against them.
package trigger

// Pattern selects how a trigger's value is matched against message text.
type Pattern string

const (
	PatternEqual   Pattern = "equal"
	PatternStart   Pattern = "start"
	PatternEnd     Pattern = "end"
	PatternContain Pattern = "contain"
	PatternRegex   Pattern = "regex"
)

// Trigger is one stored trigger rule. Triggers are replaced wholesale on
// every update, never partially mutated.
type Trigger struct {
	WebhookID     string   `json:"webhookId"`
	Type          string   `json:"type"`
	ChannelIDs    []string `json:"channelIds"`
	RoleIDs       []string `json:"roleIds"`
	Active        bool     `json:"active"`
	Pattern       Pattern  `json:"pattern"`
	Value         string   `json:"value"`
	CaseSensitive bool     `json:"caseSensitive"`
	BotMention    bool     `json:"botMention"`
	Placeholder   string   `json:"placeholder"`
	BaseURL       string   `json:"baseUrl"`
}

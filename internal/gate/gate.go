// Package gate holds the lead-capture policy: when to ask an anonymous
// visitor to authenticate or leave an email address.
package gate

// PromptThreshold is the cumulative visible message count (user and bot,
// greeting included) after which an anonymous visitor is worth prompting.
const PromptThreshold = 6

// ShouldPrompt reports whether the capture prompt should be surfaced now.
// The alreadyShown flag is session-local and never persisted; starting a new
// widget session is the only thing that resets it.
func ShouldPrompt(totalMessages int, authenticated, alreadyShown, collectingEmail bool) bool {
	return !authenticated &&
		totalMessages >= PromptThreshold &&
		!alreadyShown &&
		!collectingEmail
}

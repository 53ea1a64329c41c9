// Package contact is the single point of truth for the human-contact channels
// embedded in assistant replies, fallback texts and the lead-capture prompt.
package contact

import (
	"fmt"
	"net/url"
	"strings"
)

// Card holds the direct contact channels a visitor can always fall back to.
type Card struct {
	SchedulingURL  string
	WhatsAppNumber string
	Email          string
}

// Default returns the production contact channels.
func Default() Card {
	return Card{
		SchedulingURL:  "https://calendly.com/autoflowai525/30min",
		WhatsAppNumber: "+91 94955 16362",
		Email:          "qubitquantumai@gmail.com",
	}
}

// WhatsAppLink builds a wa.me deep link that opens a chat pre-filled with message.
func (c Card) WhatsAppLink(message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, c.WhatsAppNumber)
	link := "https://wa.me/" + digits
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}

// Affordance renders the contact line appended to every fallback reply.
func (c Card) Affordance() string {
	return fmt.Sprintf("book a consultation directly: %s or WhatsApp us: %s", c.SchedulingURL, c.WhatsAppNumber)
}

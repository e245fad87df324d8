package chat

import (
	"regexp"
	"strings"
)

const (
	PromptGreeting     = "Willkommen beim Kundenservice der Headline Agentur. Wie können wir Sie heute unterstützen?"
	promptAskName      = "Vielen Dank. Bitte nennen Sie uns Ihren Vor- und Nachnamen."
	promptAskEmail     = "Danke. Bitte nennen Sie nun Ihre E-Mail-Adresse."
	promptAskPhone     = "Danke. Bitte nennen Sie abschließend Ihre Telefonnummer."
	promptInvalidEmail = "Bitte geben Sie eine gueltige E-Mail-Adresse an."
	promptInvalidPhone = "Bitte geben Sie eine gueltige Telefonnummer an."
	promptDone         = "Vielen Dank. Ein Ansprechpartner aus unserem Team wird sich in Kürze bei Ihnen melden."
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[+\d][\d\s\-()./]{5,}$`)
)

func validEmail(s string) bool {
	return emailRe.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

func validPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 6 && phoneRe.MatchString(s)
}

// Transition is the effect of one visitor text on the onboarding dialogue:
// the step the chat moves to, the contact field captured (at most one), and
// the system reply appended to the ledger. On a validation failure Next
// equals the current step and Prompt is the retry message.
type Transition struct {
	Next   Step
	Prompt string

	Name  *string
	Email *string
	Phone *string
}

// Advance computes the transition for a non-empty visitor text at the given
// step. It is a pure function; callers persist the result atomically with
// the visitor message. At StepDone the dialogue is terminal and there is no
// system reply.
func Advance(step Step, text string) (Transition, bool) {
	text = strings.TrimSpace(text)

	switch step {
	case StepIntro:
		// any initial contact text is accepted unvalidated
		return Transition{Next: StepAskName, Prompt: promptAskName}, true

	case StepAskName:
		return Transition{Next: StepAskEmail, Prompt: promptAskEmail, Name: &text}, true

	case StepAskEmail:
		if !validEmail(text) {
			return Transition{Next: StepAskEmail, Prompt: promptInvalidEmail}, true
		}
		lower := strings.ToLower(text)
		return Transition{Next: StepAskPhone, Prompt: promptAskPhone, Email: &lower}, true

	case StepAskPhone:
		if !validPhone(text) {
			return Transition{Next: StepAskPhone, Prompt: promptInvalidPhone}, true
		}
		return Transition{Next: StepDone, Prompt: promptDone, Phone: &text}, true

	default: // StepDone
		return Transition{}, false
	}
}

package usecase

import (
	"fmt"

	"chat-responder/internal/domain"
)

const (
	clarificationReply = "I didn't catch that. Could you say something?"
	introductionReply  = "Nice to meet you, %s! How can I help you today?"
)

// replyGenerator holds the fixed candidates for one intent. named variants
// take the user's name and are only eligible once it is known.
type replyGenerator struct {
	base  []string
	named []string
}

var replyGenerators = map[domain.Intent]replyGenerator{
	domain.IntentQuestion: {
		base: []string{
			"That's a great question! I don't know the answer yet, but I'm eager to learn.",
			"I'm not sure about that one. Could you teach me the answer?",
			"Hmm, I don't know yet. I'd love to learn more about it.",
			"Good question! I haven't learned that yet, but I'm always learning.",
		},
	},
	domain.IntentGreeting: {
		base: []string{
			"Hello! How are you doing today?",
			"Hi there! What's on your mind?",
			"Hey! Nice to see you.",
			"Greetings! How can I help?",
		},
		named: []string{
			"Hello again, %s! How are you?",
			"Hi %s! Good to see you.",
		},
	},
	domain.IntentFarewell: {
		base: []string{
			"Goodbye! Have a great day!",
			"See you later!",
			"Bye! Come back soon.",
			"Farewell! It was nice chatting with you.",
		},
		named: []string{
			"Goodbye, %s! Take care.",
			"See you soon, %s!",
		},
	},
	domain.IntentGratitude: {
		base: []string{
			"You're welcome!",
			"Happy to help!",
			"Anytime!",
			"No problem at all!",
			"Glad I could help!",
		},
	},
	domain.IntentGeneral: {
		base: []string{
			"Interesting! Tell me more.",
			"I see. What else is on your mind?",
			"That's fascinating. Could you elaborate?",
			"I'm listening. Please go on.",
			"Thanks for sharing! What would you like to talk about next?",
		},
	},
}

// candidates returns the effective candidate list for intent given the
// (possibly empty) user name.
func candidates(intent domain.Intent, name string) []string {
	g, ok := replyGenerators[intent]
	if !ok {
		g = replyGenerators[domain.IntentGeneral]
	}
	out := make([]string, 0, len(g.base)+len(g.named))
	out = append(out, g.base...)
	if name == "" {
		return out
	}
	for _, tmpl := range g.named {
		out = append(out, fmt.Sprintf(tmpl, name))
	}
	return out
}

func generateReply(intent domain.Intent, name string, rng Random) string {
	list := candidates(intent, name)
	return list[rng.IntN(len(list))]
}

package domain

// Intent is the category assigned to an input that no knowledge entry answered.
type Intent int

const (
	IntentGeneral Intent = iota
	IntentQuestion
	IntentGreeting
	IntentFarewell
	IntentNameIntroduction
	IntentGratitude
)

func (i Intent) String() string {
	switch i {
	case IntentQuestion:
		return "question"
	case IntentGreeting:
		return "greeting"
	case IntentFarewell:
		return "farewell"
	case IntentNameIntroduction:
		return "name_introduction"
	case IntentGratitude:
		return "gratitude"
	default:
		return "general"
	}
}

package safety

// Fixed, pre-approved texts. The crisis response is never composed by
// the generative model.

const mentalHealthResources = `Please know that speaking with a mental health professional can be incredibly helpful.

In India, you can reach:
- iCall: 9152987821 (Mon-Sat, 8am-10pm)
- Vandrevala Foundation: 1860-2662-345 (24/7)
- NIMHANS: 080-46110007

You are not alone in this.`

const addictionResources = `Recovery is a journey, and you don't have to walk it alone. Professional support can make a real difference.

In India, you can reach:
- TTK Kolkata De-addiction Centre: 033-22802080
- NIMHANS Addiction Medicine: 080-26995000
- Alcoholics Anonymous India: 9000099100
- Narcotics Anonymous India: 9323010011

Spiritual practices can complement professional treatment beautifully.`

const crisisResponse = `I hear you, and I want you to know that what you're feeling matters deeply.

` + mentalHealthResources + `

Right now, let's take one slow breath together. Just breathe in gently... and breathe out. You don't have to carry this alone.

Would you like to share more about what's happening? I'm here to listen without judgment.`

const professionalHelpSuffix = `

While spiritual wisdom can offer comfort and perspective, please also consider speaking with a professional who can provide specialized support for what you're going through. You deserve all the help available to you.`

// CrisisResponse returns the fixed safety message for a crisis turn.
func CrisisResponse() string {
	return crisisResponse
}

// SupportSuffix returns the resource block appended to a generated
// reply when a support-need category was detected.
func SupportSuffix(category Category) string {
	switch category {
	case CategoryAddiction:
		return "\n\n" + addictionResources
	case CategoryMentalHealth:
		return "\n\n" + mentalHealthResources
	default:
		return professionalHelpSuffix
	}
}

package safety

// Default keyword lists used when none are supplied via configuration.
// Matching is substring-based on the lowercased utterance.

var DefaultCrisisKeywords = []string{
	"suicide",
	"kill myself",
	"end my life",
	"want to die",
	"don't want to live",
	"do not want to live",
	"no reason to live",
	"better off dead",
	"end it all",
	"hurt myself",
	"harm myself",
	"self harm",
	"self-harm",
}

var DefaultAddictionKeywords = []string{
	"addiction",
	"addicted",
	"alcoholic",
	"can't stop drinking",
	"cannot stop drinking",
	"drug problem",
	"substance abuse",
	"gambling problem",
	"can't quit smoking",
}

var DefaultMentalHealthKeywords = []string{
	"severe depression",
	"clinically depressed",
	"panic attack",
	"panic attacks",
	"ptsd",
	"bipolar",
	"eating disorder",
	"hearing voices",
	"hallucination",
}

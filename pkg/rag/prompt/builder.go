package prompt

import (
	"fmt"
	"sort"
	"strings"

	"sarathi-be/pkg/store"
)

// HistoryWindow bounds how many recent turns the model sees.
const HistoryWindow = 12

// Builder assembles the context document for the generative model.
// Section order is fixed: profile, known facts, conversation window,
// phase instructions, passages. Passages the reranker dropped never
// appear here.
type Builder struct {
	session  *store.Session
	message  string
	phase    store.Phase
	passages []store.ScoredDocument
}

func NewBuilder(session *store.Session, message string, phase store.Phase, passages []store.ScoredDocument) *Builder {
	return &Builder{
		session:  session,
		message:  message,
		phase:    phase,
		passages: passages,
	}
}

func (b *Builder) Build() string {
	var prompt strings.Builder

	b.writeProfile(&prompt)
	b.writeKnownFacts(&prompt)
	b.writeConversation(&prompt)
	b.writeInstructions(&prompt)
	b.writePassages(&prompt)

	prompt.WriteString("<user_message>\n")
	prompt.WriteString(b.message)
	prompt.WriteString("\n</user_message>\n")

	return prompt.String()
}

func (b *Builder) writeProfile(prompt *strings.Builder) {
	p := b.session.Profile
	if p == nil {
		return
	}

	prompt.WriteString("<user_profile>\n")
	if p.Name != "" {
		fmt.Fprintf(prompt, "Name: %s\n", p.Name)
	}
	if p.AgeGroup != "" {
		fmt.Fprintf(prompt, "Age group: %s\n", p.AgeGroup)
	}
	if p.Profession != "" {
		fmt.Fprintf(prompt, "Profession: %s\n", p.Profession)
	}
	if p.Gender != "" {
		fmt.Fprintf(prompt, "Gender: %s\n", p.Gender)
	}
	prompt.WriteString("</user_profile>\n\n")
}

func (b *Builder) writeKnownFacts(prompt *strings.Builder) {
	if len(b.session.Signals) == 0 {
		return
	}

	// Stable key order so identical sessions produce identical prompts.
	keys := make([]string, 0, len(b.session.Signals))
	for k := range b.session.Signals {
		if k == store.SignalReadiness || k == store.SignalResistance {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	prompt.WriteString("<known_facts>\n")
	for _, k := range keys {
		sig := b.session.Signals[k]
		if sig.Value == store.SignalPlaceholder {
			continue
		}
		fmt.Fprintf(prompt, "- %s: %s\n", strings.ReplaceAll(k, "_", " "), sig.Value)
	}
	prompt.WriteString("</known_facts>\n\n")
}

func (b *Builder) writeConversation(prompt *strings.Builder) {
	turns := b.session.Turns
	if len(turns) > HistoryWindow {
		turns = turns[len(turns)-HistoryWindow:]
	}
	if len(turns) == 0 {
		return
	}

	prompt.WriteString("<conversation>\n")
	for _, t := range turns {
		fmt.Fprintf(prompt, "%s: %s\n", t.Role, t.Text)
	}
	prompt.WriteString("</conversation>\n\n")
}

func (b *Builder) writeInstructions(prompt *strings.Builder) {
	prompt.WriteString("<instructions>\n")
	prompt.WriteString("You are a warm, grounded spiritual companion. Speak simply and personally.\n")

	switch b.phase {
	case store.PhaseListening, store.PhaseClarification:
		prompt.WriteString("The user is still sharing their situation. Do NOT give advice or cite any scripture yet.\n")
		prompt.WriteString("Acknowledge what they said, reflect the feeling back, and ask one gentle question that helps them open up further.\n")
		prompt.WriteString("Keep it to three or four sentences.\n")
	case store.PhaseSynthesis, store.PhaseGuidance:
		prompt.WriteString("Enough is known to offer guidance now.\n")
		prompt.WriteString("Weave at most two of the provided passages into a caring, practical answer.\n")
		prompt.WriteString("Wrap every quoted verse in [VERSE]...[/VERSE] markers and cite its reference key as (ref: KEY).\n")
		prompt.WriteString("Only cite passages that appear in the passages section; never invent a reference.\n")
		prompt.WriteString("If the conversation feels resolved, end warmly and add the line [TYPE]closure[/TYPE]; otherwise add [TYPE]guidance[/TYPE].\n")
	case store.PhaseClosure:
		prompt.WriteString("The conversation is closing. Offer a short, warm farewell and an invitation to return.\n")
	}
	prompt.WriteString("Never dismiss or minimize the user's feelings.\n")
	prompt.WriteString("</instructions>\n\n")
}

func (b *Builder) writePassages(prompt *strings.Builder) {
	if len(b.passages) == 0 {
		return
	}

	prompt.WriteString("<passages>\n")
	for _, doc := range b.passages {
		fmt.Fprintf(prompt, "[ref: %s] (%s)\n%s\n\n", doc.RefKey, doc.Source.Collection, doc.Text)
	}
	prompt.WriteString("</passages>\n\n")
}

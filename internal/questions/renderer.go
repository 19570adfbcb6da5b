package questions

import (
	"math/rand"
	"strings"
)

// subjectPlaceholder is replaced with the cycle's subject in templates that
// require one.
const subjectPlaceholder = "{symbol}"

type template struct {
	text         string
	needsSubject bool
}

var defaultTemplates = []template{
	{text: "What do you all think about " + subjectPlaceholder + " right now?", needsSubject: true},
	{text: "Anyone watching " + subjectPlaceholder + " today? Bullish or bearish?", needsSubject: true},
	{text: "Is " + subjectPlaceholder + " overbought or is there still room to run?", needsSubject: true},
	{text: "Would you hold " + subjectPlaceholder + " through the week?", needsSubject: true},
	{text: "What's your price target on " + subjectPlaceholder + "?", needsSubject: true},
	{text: "If you had to pick one ticker to watch this week, which one?"},
	{text: "What's the most interesting chart you've seen today?"},
	{text: "Anyone taking profits today or letting it ride?"},
}

// Renderer turns a subject into a question. With an empty subject only the
// generic templates are eligible, so a cycle that found no subject still
// produces something to post.
type Renderer struct {
	templates []template
	pick      func(n int) int
}

// NewRenderer creates a renderer over the default template table.
func NewRenderer() *Renderer {
	return &Renderer{
		templates: defaultTemplates,
		pick:      rand.Intn,
	}
}

// Render picks a random eligible template and substitutes the subject. The
// second return is false only when no template is eligible.
func (r *Renderer) Render(subject string) (string, bool) {
	var eligible []template
	for _, t := range r.templates {
		if t.needsSubject && subject == "" {
			continue
		}
		eligible = append(eligible, t)
	}
	if len(eligible) == 0 {
		return "", false
	}

	chosen := eligible[r.pick(len(eligible))]
	if chosen.needsSubject {
		return strings.ReplaceAll(chosen.text, subjectPlaceholder, subject), true
	}
	return chosen.text, true
}

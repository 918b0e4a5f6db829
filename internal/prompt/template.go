// Package prompt validates and renders the retrieval prompt templates.
//
// Templates use f-string placeholders and must contain exactly the two slots
// {context} and {question}. Literal braces are written doubled ("{{", "}}").
package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// Slot names every template must contain.
const (
	SlotContext  = "context"
	SlotQuestion = "question"
)

var (
	// ErrMissingSlot is returned when a template lacks {context} or {question}.
	ErrMissingSlot = errors.New("prompt template is missing a required slot")
	// ErrUnknownSlot is returned when a template names a slot other than {context} or {question}.
	ErrUnknownSlot = errors.New("prompt template has an unknown slot")
	// ErrMalformed is returned for unbalanced braces.
	ErrMalformed = errors.New("prompt template is malformed")
)

// Template is a validated prompt template.
type Template struct {
	text string
}

// Parse validates text and returns it as a Template.
func Parse(text string) (Template, error) {
	if err := Validate(text); err != nil {
		return Template{}, err
	}
	return Template{text: text}, nil
}

// MustParse is like Parse but panics on error. Only used for the built-in templates.
func MustParse(text string) Template {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Text returns the raw template text.
func (t Template) Text() string {
	return t.text
}

// Render substitutes the retrieved context and the question into the template.
func (t Template) Render(context, question string) (string, error) {
	pt := prompts.PromptTemplate{
		Template:       t.text,
		InputVariables: []string{SlotContext, SlotQuestion},
		TemplateFormat: prompts.TemplateFormatFString,
	}
	out, err := pt.Format(map[string]any{
		SlotContext:  context,
		SlotQuestion: question,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// Validate checks that text contains both required slots and no others.
func Validate(text string) error {
	slots, err := Slots(text)
	if err != nil {
		return err
	}
	var missing, unknown []string
	for _, want := range []string{SlotContext, SlotQuestion} {
		if _, ok := slots[want]; !ok {
			missing = append(missing, "{"+want+"}")
		}
	}
	for name := range slots {
		if name != SlotContext && name != SlotQuestion {
			unknown = append(unknown, "{"+name+"}")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSlot, strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownSlot, strings.Join(unknown, ", "))
	}
	return nil
}

// Slots returns the set of placeholder names in text, honouring "{{" and "}}" escapes.
func Slots(text string) (map[string]struct{}, error) {
	slots := make(map[string]struct{})
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformed, i)
			}
			name := strings.TrimSpace(text[i+1 : i+1+end])
			if name == "" || strings.ContainsRune(name, '{') {
				return nil, fmt.Errorf("%w: bad placeholder at offset %d", ErrMalformed, i)
			}
			slots[name] = struct{}{}
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrMalformed, i)
		}
	}
	return slots, nil
}

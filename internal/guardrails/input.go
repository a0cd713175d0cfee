package guardrails

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"runbook-rag/internal/models"
)

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(models.ScriptTagRegex),
	regexp.MustCompile(models.SQLVerbRegex),
	regexp.MustCompile(models.CodeCallRegex),
}

// Input is the ordered chain applied to a raw query before any
// retrieval work happens.
type Input struct {
	steps []InputStep
}

func NewInput() *Input {
	return &Input{steps: []InputStep{
		{Name: "input_length", Check: checkLength},
		{Name: "injection_sanitizer", Transform: Sanitize},
		{Name: "content_safety", Check: checkContentSafety},
		{Name: "document_context", Check: checkDocumentContext},
	}}
}

// Validate runs every step in order. Transforms replace the working
// query for all subsequent steps; the first failing check aborts the
// chain. Returns the (possibly sanitized) query.
func (g *Input) Validate(query string, st InputState) (string, error) {
	for _, step := range g.steps {
		if step.Transform != nil {
			query = step.Transform(query)
			continue
		}
		if err := step.Check(query, st); err != nil {
			log.Debug().Str("step", step.Name).Err(err).Msg("query rejected")
			return "", err
		}
	}
	return query, nil
}

func checkLength(query string, _ InputState) error {
	if n := utf8.RuneCountInString(query); n > models.MaxQueryLength {
		return fmt.Errorf("%w: %d characters (limit %d)", ErrQueryTooLong, n, models.MaxQueryLength)
	}
	return nil
}

// Sanitize removes known attack patterns (script tags, SQL verbs,
// code-execution calls) from the query rather than rejecting it.
func Sanitize(query string) string {
	for _, re := range injectionPatterns {
		query = re.ReplaceAllString(query, "")
	}
	return query
}

func checkContentSafety(query string, _ InputState) error {
	lower := strings.ToLower(query)
	for _, kw := range models.DenylistKeywords {
		if strings.Contains(lower, kw) {
			return fmt.Errorf("%w: %q", ErrUnsafeContent, kw)
		}
	}
	return nil
}

func checkDocumentContext(_ string, st InputState) error {
	if !st.DocumentsLoaded {
		return ErrNoDocuments
	}
	return nil
}

package guardrails

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"runbook-rag/internal/models"
)

var (
	referenceRe = regexp.MustCompile(models.ReferenceRegex)
	refNameRe   = regexp.MustCompile(models.RefNameRegex)
)

// Output is the ordered chain applied to a generated answer and the
// source texts it was produced from. All three named checks currently
// share the lexical grounding heuristic; the split exists so a
// stronger check can replace any one of them without reshaping the
// pipeline.
type Output struct {
	steps []OutputStep
}

func NewOutput() *Output {
	return &Output{steps: []OutputStep{
		{Name: "response_accuracy", Check: checkGrounding},
		{Name: "hallucination", Check: checkGrounding},
		{Name: "source_grounding", Check: checkGrounding},
	}}
}

// Validate runs the grounding steps, then, if the answer contains
// bracketed image/table references, validates each against validRefs.
func (g *Output) Validate(answer string, sources []string, validRefs map[string]struct{}) error {
	for _, step := range g.steps {
		if err := step.Check(answer, sources); err != nil {
			log.Debug().Str("step", step.Name).Err(err).Msg("answer rejected")
			return fmt.Errorf("%w (%s): %v", ErrOutputRejected, step.Name, err)
		}
	}

	refs := ExtractReferences(answer)
	if len(refs) == 0 {
		return nil
	}
	for _, ref := range refs {
		if err := validateReference(ref, validRefs); err != nil {
			log.Debug().Str("reference", ref).Err(err).Msg("answer rejected")
			return fmt.Errorf("%w (references): %v", ErrOutputRejected, err)
		}
	}
	return nil
}

// checkGrounding accepts the answer only if at least 10% of its
// distinct lowercase words also occur in the concatenated sources.
// An answer with no sources, or with no words, is never grounded.
func checkGrounding(answer string, sources []string) error {
	if len(sources) == 0 {
		return fmt.Errorf("no sources to ground against")
	}
	answerWords := wordSet(answer)
	if len(answerWords) == 0 {
		return fmt.Errorf("answer has no words")
	}
	sourceWords := wordSet(strings.Join(sources, " "))

	hits := 0
	for w := range answerWords {
		if _, ok := sourceWords[w]; ok {
			hits++
		}
	}
	overlap := float64(hits) / float64(len(answerWords))
	if overlap < models.GroundingMinimum {
		return fmt.Errorf("overlap %.2f below %.2f threshold", overlap, models.GroundingMinimum)
	}
	return nil
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// ExtractReferences pulls [Image: name] and [Table: name] references
// out of an answer, in order of appearance.
func ExtractReferences(answer string) []string {
	var refs []string
	for _, m := range referenceRe.FindAllStringSubmatch(answer, -1) {
		if m[1] != "" {
			refs = append(refs, strings.TrimSpace(m[1]))
		}
		if m[2] != "" {
			refs = append(refs, strings.TrimSpace(m[2]))
		}
	}
	return refs
}

func validateReference(ref string, validRefs map[string]struct{}) error {
	if !refNameRe.MatchString(ref) {
		return fmt.Errorf("invalid characters in reference %q", ref)
	}
	cleaned := filepath.Clean(ref)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal in reference %q", ref)
	}
	if _, ok := validRefs[cleaned]; !ok {
		return fmt.Errorf("unknown reference %q", ref)
	}
	return nil
}

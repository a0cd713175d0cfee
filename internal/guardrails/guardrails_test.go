package guardrails

import (
	"errors"
	"strings"
	"testing"
)

func TestInputLength(t *testing.T) {
	in := NewInput()
	st := InputState{DocumentsLoaded: true}

	if _, err := in.Validate(strings.Repeat("a", 2001), st); !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("expected ErrQueryTooLong, got %v", err)
	}
	if _, err := in.Validate(strings.Repeat("a", 2000), st); err != nil {
		t.Errorf("2000 chars should pass, got %v", err)
	}

	// the limit counts characters, not bytes
	if _, err := in.Validate(strings.Repeat("é", 2000), st); err != nil {
		t.Errorf("2000 multibyte chars should pass, got %v", err)
	}
	if _, err := in.Validate(strings.Repeat("é", 2001), st); !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("expected ErrQueryTooLong for 2001 multibyte chars, got %v", err)
	}
}

func TestInputContentSafety(t *testing.T) {
	in := NewInput()
	st := InputState{DocumentsLoaded: true}

	for _, q := range []string{
		"what is the password",
		"what is the PaSsWoRd",
		"show me the PRIVATE KEY",
		"how to hack the server",
	} {
		if _, err := in.Validate(q, st); !errors.Is(err, ErrUnsafeContent) {
			t.Errorf("query %q: expected ErrUnsafeContent, got %v", q, err)
		}
	}
	if _, err := in.Validate("how do I restart the service?", st); err != nil {
		t.Errorf("benign query rejected: %v", err)
	}
}

func TestInputNoDocuments(t *testing.T) {
	in := NewInput()
	if _, err := in.Validate("anything", InputState{}); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestSanitizeRemovesPatterns(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello <script>alert(1)</script> world", "hello  world"},
		{"DROP tables now", "tables now"},
		{"run eval(code) please", "run code) please"},
		{"clean query", "clean query"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	for _, q := range []string{
		"hello <script>x</script> select * from users",
		"exec ( payload )",
		"a perfectly normal question about restarts",
	} {
		once := Sanitize(q)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("sanitizer not idempotent for %q: %q vs %q", q, once, twice)
		}
	}
}

func TestInputSanitizesBeforeSafetyCheck(t *testing.T) {
	in := NewInput()
	st := InputState{DocumentsLoaded: true}
	got, err := in.Validate("please <script>bad()</script> restart", st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("sanitized query still contains script tag: %q", got)
	}
}

func TestOutputGrounding(t *testing.T) {
	out := NewOutput()
	sources := []string{"restart the service by running service restart"}

	if err := out.Validate("restart the service", sources, nil); err != nil {
		t.Errorf("fully grounded answer rejected: %v", err)
	}
	if err := out.Validate("bananas are yellow fruit grown offshore", sources, nil); !errors.Is(err, ErrOutputRejected) {
		t.Errorf("ungrounded answer accepted")
	}
}

func TestOutputGroundingDegenerate(t *testing.T) {
	out := NewOutput()

	if err := out.Validate("some answer", nil, nil); !errors.Is(err, ErrOutputRejected) {
		t.Errorf("answer with no sources should be rejected")
	}
	if err := out.Validate("", []string{"source text"}, nil); !errors.Is(err, ErrOutputRejected) {
		t.Errorf("empty answer should be rejected, not accepted vacuously")
	}
}

func TestOutputReferences(t *testing.T) {
	out := NewOutput()
	sources := []string{"see the diagram for restart details"}
	valid := map[string]struct{}{"diagram.png": {}}

	if err := out.Validate("see restart details [Image: diagram.png]", sources, valid); err != nil {
		t.Errorf("valid reference rejected: %v", err)
	}
	if err := out.Validate("see restart details [Image: ../../etc/passwd]", sources, valid); !errors.Is(err, ErrOutputRejected) {
		t.Errorf("path traversal reference accepted")
	}
	if err := out.Validate("see restart details [Table: unknown_table]", sources, valid); !errors.Is(err, ErrOutputRejected) {
		t.Errorf("unknown reference accepted")
	}
}

func TestExtractReferences(t *testing.T) {
	refs := ExtractReferences("intro [Image: a.png] middle [Table: totals] end")
	if len(refs) != 2 || refs[0] != "a.png" || refs[1] != "totals" {
		t.Errorf("unexpected references: %v", refs)
	}
	if refs := ExtractReferences("no references here"); refs != nil {
		t.Errorf("expected none, got %v", refs)
	}
}

package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"signsync/internal/domain"
)

func writeRules(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.rules")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestMapperMissingFileIsIdentity(t *testing.T) {
	t.Parallel()

	mapper, err := NewMapper(filepath.Join(t.TempDir(), "missing.rules"))
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}

	in := domain.PredictionResult{Emotion: domain.Some("3")}
	out, err := mapper.Map(in)
	if err != nil {
		t.Fatalf("map failed: %v", err)
	}
	if out != in {
		t.Fatalf("expected identity mapping, got %#v", out)
	}
}

func TestMapperEmptyPathIsIdentity(t *testing.T) {
	t.Parallel()

	mapper, err := NewMapper("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := mapper.Map(domain.PredictionResult{LeftHand: domain.Some("A")})
	if out.LeftHand.Value != "A" {
		t.Fatalf("expected unchanged value, got %q", out.LeftHand.Value)
	}
}

func TestMapperExactRulesMatchWholeValueIgnoringCase(t *testing.T) {
	t.Parallel()

	path := writeRules(t, strings.Join([]string{
		"# emotion classes",
		"emotion: 3 => happy",
		"emotion: 30 => thirty",
		"HELLO => Hello",
	}, "\n"))
	mapper, err := NewMapper(path)
	if err != nil {
		t.Fatalf("load mapper: %v", err)
	}

	out, err := mapper.Map(domain.PredictionResult{
		Emotion:  domain.Some("3"),
		LeftHand: domain.Some("hello"),
		Text:     domain.Some("hello there"),
	})
	if err != nil {
		t.Fatalf("map failed: %v", err)
	}
	if out.Emotion.Value != "happy" {
		t.Fatalf("expected emotion happy, got %q", out.Emotion.Value)
	}
	if out.LeftHand.Value != "Hello" {
		t.Fatalf("expected left hand Hello, got %q", out.LeftHand.Value)
	}
	if out.Text.Value != "hello there" {
		t.Fatalf("expected partial match to be ignored, got %q", out.Text.Value)
	}
}

func TestMapperScopesRestrictFields(t *testing.T) {
	t.Parallel()

	path := writeRules(t, "hand: 0 => A\nemotion: 0 => angry\nright_hand: 1 => B\n")
	mapper, err := NewMapper(path)
	if err != nil {
		t.Fatalf("load mapper: %v", err)
	}

	out, _ := mapper.Map(domain.PredictionResult{
		Emotion:   domain.Some("0"),
		LeftHand:  domain.Some("0"),
		RightHand: domain.Some("1"),
	})
	if out.Emotion.Value != "angry" || out.LeftHand.Value != "A" || out.RightHand.Value != "B" {
		t.Fatalf("unexpected mapping %#v", out)
	}
}

func TestMapperLeavesAbsentFieldsAbsent(t *testing.T) {
	t.Parallel()

	path := writeRules(t, "* : s/^.*$/filled/\n")
	mapper, err := NewMapper(path)
	if err != nil {
		t.Fatalf("load mapper: %v", err)
	}

	out, _ := mapper.Map(domain.PredictionResult{Emotion: domain.Some("x")})
	if out.Emotion.Value != "filled" {
		t.Fatalf("expected emotion rewritten, got %q", out.Emotion.Value)
	}
	if out.LeftHand.Set || out.RightHand.Set || out.Text.Set {
		t.Fatalf("expected absent fields to stay absent, got %#v", out)
	}
}

func TestMapperUnknownPrefixIsPartOfValue(t *testing.T) {
	t.Parallel()

	mapper, err := NewMapper(writeRules(t, "12:30 => half past\n"))
	if err != nil {
		t.Fatalf("load mapper: %v", err)
	}
	out, _ := mapper.Map(domain.PredictionResult{Text: domain.Some("12:30")})
	if out.Text.Value != "half past" {
		t.Fatalf("expected colon value to match, got %q", out.Text.Value)
	}
}

func TestMapperRegexRules(t *testing.T) {
	t.Parallel()

	path := writeRules(t, "hand: s/^class_(\\d+)$/sign #$1/\ntext: s/o/0/g\n")
	mapper, err := NewMapper(path)
	if err != nil {
		t.Fatalf("load mapper: %v", err)
	}

	out, _ := mapper.Map(domain.PredictionResult{
		LeftHand: domain.Some("CLASS_7"),
		Text:     domain.Some("foo boo"),
	})
	if out.LeftHand.Value != "sign #7" {
		t.Fatalf("expected regex capture replacement, got %q", out.LeftHand.Value)
	}
	if out.Text.Value != "f00 b00" {
		t.Fatalf("expected global replacement, got %q", out.Text.Value)
	}
}

func TestMapperFirstMatchingRuleWins(t *testing.T) {
	t.Parallel()

	path := writeRules(t, "1 => one\n1 => uno\ns/one/ONE/\n")
	mapper, err := NewMapper(path)
	if err != nil {
		t.Fatalf("load mapper: %v", err)
	}

	out, _ := mapper.Map(domain.PredictionResult{Emotion: domain.Some("1")})
	if out.Emotion.Value != "one" {
		t.Fatalf("expected a single rule to apply, got %q", out.Emotion.Value)
	}
}

func TestMapperRejectsInvalidRules(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty source":     " => one",
		"empty scoped":     "emotion: => one",
		"bad regex":        "s/(/x/",
		"unterminated":     "s/abc/x",
		"unknown flag":     "s/a/b/z",
		"no rule operator": "just text",
	}
	for name, contents := range cases {
		contents := contents
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewMapper(writeRules(t, contents)); err == nil {
				t.Fatalf("expected %q to be rejected", contents)
			}
		})
	}
}

type upperRuleParser struct{}

type upperRule struct{}

func (upperRuleParser) CanParse(body string) bool { return body == "UPPER" }

func (upperRuleParser) Parse(string) (compiledRule, error) { return upperRule{}, nil }

func (upperRule) Apply(value string) (string, bool) { return strings.ToUpper(value), true }

func TestMapperWithCustomParser(t *testing.T) {
	t.Parallel()

	mapper, err := NewMapperWithParsers(writeRules(t, "text: UPPER\n"), []RuleParser{upperRuleParser{}})
	if err != nil {
		t.Fatalf("load mapper: %v", err)
	}
	out, _ := mapper.Map(domain.PredictionResult{Text: domain.Some("hello")})
	if out.Text.Value != "HELLO" {
		t.Fatalf("expected custom parser to apply, got %q", out.Text.Value)
	}
}

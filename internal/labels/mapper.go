package labels

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"signsync/internal/domain"
)

// Scopes a rule can be restricted to with a "<scope>:" prefix.
const (
	ScopeAll       = "*"
	ScopeEmotion   = "emotion"
	ScopeHand      = "hand"
	ScopeLeftHand  = "left_hand"
	ScopeRightHand = "right_hand"
	ScopeText      = "text"
)

type compiledRule interface {
	Apply(value string) (output string, matched bool)
}

// RuleParser parses one rule body (the line without its scope) into a rule.
type RuleParser interface {
	CanParse(body string) bool
	Parse(body string) (compiledRule, error)
}

type scopedRule struct {
	scope string
	rule  compiledRule
}

// Mapper rewrites raw recognizer values into display labels. The recognizer
// may answer with class indices; a rules file such as
//
//	emotion: 3 => happy
//	hand: s/^class_(\d+)$/sign #$1/
//
// maps them before rendering. For each value the first matching rule wins.
type Mapper struct {
	rules []scopedRule
}

// NewMapper loads rules from path. A missing or empty path yields an identity mapper.
func NewMapper(path string) (*Mapper, error) {
	return NewMapperWithParsers(path, defaultRuleParsers())
}

// NewMapperWithParsers allows parser extension without mapper changes.
func NewMapperWithParsers(path string, parsers []RuleParser) (*Mapper, error) {
	if len(parsers) == 0 {
		parsers = defaultRuleParsers()
	}
	if strings.TrimSpace(path) == "" {
		return &Mapper{}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Mapper{}, nil
		}
		return nil, fmt.Errorf("failed to read labels file %q: %w", path, err)
	}

	rules, err := parseRules(string(contents), parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels file %q: %w", path, err)
	}
	return &Mapper{rules: rules}, nil
}

// Map implements ports.LabelMapper. Absent fields stay absent.
func (m *Mapper) Map(result domain.PredictionResult) (domain.PredictionResult, error) {
	if len(m.rules) == 0 {
		return result, nil
	}

	result.Emotion = m.mapLabel(ScopeEmotion, result.Emotion)
	result.LeftHand = m.mapLabel(ScopeLeftHand, result.LeftHand)
	result.RightHand = m.mapLabel(ScopeRightHand, result.RightHand)
	result.Text = m.mapLabel(ScopeText, result.Text)
	return result, nil
}

func (m *Mapper) mapLabel(field string, label domain.Label) domain.Label {
	if !label.Present() {
		return label
	}
	value := strings.TrimSpace(label.Value)
	for _, r := range m.rules {
		if !r.appliesTo(field) {
			continue
		}
		if output, matched := r.rule.Apply(value); matched {
			return domain.Some(output)
		}
	}
	return label
}

func (r scopedRule) appliesTo(field string) bool {
	switch r.scope {
	case ScopeAll:
		return true
	case ScopeHand:
		return field == ScopeLeftHand || field == ScopeRightHand
	default:
		return r.scope == field
	}
}

func parseRules(contents string, parsers []RuleParser) ([]scopedRule, error) {
	lines := strings.Split(contents, "\n")
	rules := make([]scopedRule, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		scope, body := splitScope(line)

		parsed := false
		for _, parser := range parsers {
			if !parser.CanParse(body) {
				continue
			}
			rule, err := parser.Parse(body)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", index+1, err)
			}
			rules = append(rules, scopedRule{scope: scope, rule: rule})
			parsed = true
			break
		}

		if !parsed {
			return nil, fmt.Errorf("line %d: unsupported rule format", index+1)
		}
	}

	return rules, nil
}

// splitScope separates an optional "<scope>:" prefix. Lines without a known
// scope apply to every field.
func splitScope(line string) (string, string) {
	if looksLikeRegexRule(line) {
		return ScopeAll, line
	}
	head, rest, ok := strings.Cut(line, ":")
	if !ok {
		return ScopeAll, line
	}
	switch scope := strings.ToLower(strings.TrimSpace(head)); scope {
	case ScopeAll, ScopeEmotion, ScopeHand, ScopeLeftHand, ScopeRightHand, ScopeText:
		return scope, strings.TrimSpace(rest)
	default:
		return ScopeAll, line
	}
}

func defaultRuleParsers() []RuleParser {
	return []RuleParser{regexRuleParser{}, exactRuleParser{}}
}

type exactRuleParser struct{}

func (exactRuleParser) CanParse(body string) bool {
	return strings.Contains(body, "=>")
}

func (exactRuleParser) Parse(body string) (compiledRule, error) {
	return parseExactRule(body)
}

type regexRuleParser struct{}

func (regexRuleParser) CanParse(body string) bool {
	return looksLikeRegexRule(body)
}

func (regexRuleParser) Parse(body string) (compiledRule, error) {
	return parseRegexRule(body)
}

// exactRule matches the whole value, ignoring case.
type exactRule struct {
	from string
	to   string
}

func parseExactRule(body string) (compiledRule, error) {
	from, to, ok := strings.Cut(body, "=>")
	if !ok {
		return nil, errors.New("invalid label rule")
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("label rule source cannot be empty")
	}
	return exactRule{from: from, to: to}, nil
}

func (r exactRule) Apply(value string) (string, bool) {
	if strings.EqualFold(value, r.from) {
		return r.to, true
	}
	return value, false
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func parseRegexRule(body string) (compiledRule, error) {
	if len(body) < 2 {
		return nil, errors.New("invalid regex rule")
	}
	delim := body[1]
	if isAlphaNumericOrSpace(delim) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}

	pattern, pos, err := parseDelimited(body, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := parseDelimited(body, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}

	ignoreCase, global := true, false
	for _, flag := range strings.TrimSpace(body[pos:]) {
		switch flag {
		case 'i':
			ignoreCase = true
		case 'g':
			global = true
		case ' ':
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}
	if ignoreCase {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: replacement, global: global}, nil
}

func (r regexRule) Apply(value string) (string, bool) {
	match := r.re.FindStringSubmatchIndex(value)
	if match == nil {
		return value, false
	}
	if r.global {
		return r.re.ReplaceAllString(value, r.replacement), true
	}
	expanded := r.re.ExpandString(nil, r.replacement, value, match)
	return value[:match[0]] + string(expanded) + value[match[1]:], true
}

func parseDelimited(body string, start int, delim byte) (string, int, error) {
	if start >= len(body) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(body); index++ {
		char := body[index]
		if escaped {
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			builder.WriteByte(char)
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isAlphaNumericOrSpace(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == ' ' || char == '\t'
}

func looksLikeRegexRule(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isAlphaNumericOrSpace(line[1])
}

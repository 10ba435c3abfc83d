package compliance

// DocumentRule is one character class a document is expected to contain.
type DocumentRule struct {
	Name    string
	Matches func(r rune) bool
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// DefaultDocumentRules are the name, date and id classes.
var DefaultDocumentRules = []DocumentRule{
	{Name: "name", Matches: isUpper},
	{Name: "date", Matches: func(r rune) bool { return isDigit(r) || r == '-' }},
	{Name: "id", Matches: func(r rune) bool { return isUpper(r) || isDigit(r) }},
}

// DocumentVerifier scores text against a fixed set of character classes.
type DocumentVerifier struct {
	rules []DocumentRule
}

func NewDocumentVerifier() *DocumentVerifier {
	return &DocumentVerifier{rules: DefaultDocumentRules}
}

// Score returns how many rules have at least one matching rune in text.
func (v *DocumentVerifier) Score(text string) int {
	score := 0
	for _, rule := range v.rules {
		for _, r := range text {
			if rule.Matches(r) {
				score++
				break
			}
		}
	}
	return score
}

// Check passes when more than half of the rules score.
func (v *DocumentVerifier) Check(text string) bool {
	return float64(v.Score(text))/float64(len(v.rules)) > 0.5
}

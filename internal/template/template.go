// Package template substitutes [#TOKEN] placeholders in notification text.
package template

import (
	"regexp"
	"sort"
)

// Token is a placeholder name without its [# ] delimiters.
type Token string

const (
	ListID         Token = "LISTID"
	Name           Token = "NAME"
	Address        Token = "ADDRESS"
	Username       Token = "USERNAME"
	Reason         Token = "REASON"
	ApplicationID  Token = "APPLID"
	SubmittedDate  Token = "SUBDATE"
	DueDate        Token = "DUEDATE"
	ApplicantName  Token = "APPLNAME"
	ApplicantEmail Token = "APPLEMAIL"
	ApplicantPhone Token = "APPLPHONE"

	LineBreak Token = "BR"
	Paragraph Token = "P"
)

// Placeholder returns the literal marker for t, e.g. "[#LISTID]".
func (t Token) Placeholder() string {
	return "[#" + string(t) + "]"
}

var markup = map[Token]string{
	LineBreak: "<br />",
	Paragraph: "</p><p>",
}

// Values maps tokens to their substitution text.
type Values map[Token]string

var placeholderPattern = regexp.MustCompile(`\[#([A-Za-z0-9_]+)\]`)

// Result is the outcome of rendering a template.
type Result struct {
	Text string
	// Unresolved lists placeholders left in Text because no value was supplied.
	Unresolved []string
}

// Render replaces every placeholder that has a value, in a single pass, so
// substituted text is never expanded again. Placeholders without a value are
// left verbatim and reported in Result.Unresolved.
func Render(text string, values Values) Result {
	seen := make(map[string]struct{})

	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		token := Token(placeholderPattern.FindStringSubmatch(match)[1])
		if v, ok := values[token]; ok {
			return v
		}
		if v, ok := markup[token]; ok {
			return v
		}
		seen[match] = struct{}{}
		return match
	})

	unresolved := make([]string, 0, len(seen))
	for placeholder := range seen {
		unresolved = append(unresolved, placeholder)
	}
	sort.Strings(unresolved)

	return Result{Text: out, Unresolved: unresolved}
}

// Missing returns the required tokens that have no entry in values.
func Missing(values Values, required []Token) []Token {
	var missing []Token
	for _, t := range required {
		if _, ok := values[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

package domain

import "fmt"

// Answer is a reply to a yes/no question.
type Answer string

const (
	AnswerYes Answer = "yes"
	AnswerNo  Answer = "no"
)

// ParseAnswer accepts exactly "yes" or "no".
func ParseAnswer(s string) (Answer, error) {
	switch Answer(s) {
	case AnswerYes, AnswerNo:
		return Answer(s), nil
	}
	return "", NewError(KindValidation, "parse answer", fmt.Sprintf("answer must be %q or %q, got %q", AnswerYes, AnswerNo, s))
}

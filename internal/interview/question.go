package interview

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidYesNo        = errors.New("You must answer either YES or NO !")
	ErrInvalidContactLevel = errors.New("Please enter a valid level of contact")
	ErrInterviewAborted    = errors.New("interview was not submitted")
)

type Kind int

const (
	KindYesNo Kind = iota
	KindContactLevel
	KindText
)

// Question keys. Symptom questions use SymptomKey.
const (
	KeyOverseasTravel = "overseas_travel"
	KeyRATPositive    = "rat_positive"
	KeyContactLevel   = "contact_level"
	KeyConfirmSubmit  = "confirm_submit"
	KeyRATKit         = "rat_kit"
	KeySuburb         = "suburb"
)

func SymptomKey(name string) string {
	return "symptom:" + name
}

type Question struct {
	Key     string
	Text    string
	Kind    Kind
	Options []string // numbered choices, for KindContactLevel
}

// Prompter asks a person one question at a time and shows them notices,
// such as why an answer was not accepted.
type Prompter interface {
	Ask(ctx context.Context, q Question) (string, error)
	Notify(ctx context.Context, msg string)
}

// ParseYesNo accepts YES or NO in any case.
func ParseYesNo(answer string) (bool, error) {
	switch {
	case strings.EqualFold(answer, "YES"):
		return true, nil
	case strings.EqualFold(answer, "NO"):
		return false, nil
	}
	return false, ErrInvalidYesNo
}

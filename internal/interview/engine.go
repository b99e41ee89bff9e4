package interview

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hackgods/covid-test-booking/internal/symptom"
	"github.com/hackgods/covid-test-booking/internal/triage"
)

var contactLevels = []string{
	"Resident has been in contact with a confirmed COVID-19 case",
	"Resident has been in contact with suspected COVID-19 case",
	"Resident has been in contact with a COVID-19 case",
}

// Engine runs the question and answer protocol over a Prompter. Invalid
// answers are reported through Notify and the same question is asked
// again; only the Prompter can end an interview early.
type Engine struct {
	prompter Prompter
	catalog  *symptom.Catalog
}

func NewEngine(p Prompter, catalog *symptom.Catalog) *Engine {
	return &Engine{prompter: p, catalog: catalog}
}

func (e *Engine) AskYesNo(ctx context.Context, key, text string) (bool, error) {
	q := Question{Key: key, Text: text, Kind: KindYesNo}
	for {
		answer, err := e.prompter.Ask(ctx, q)
		if err != nil {
			return false, fmt.Errorf("ask %s: %w", key, err)
		}

		yes, err := ParseYesNo(strings.TrimSpace(answer))
		if err == nil {
			return yes, nil
		}
		e.prompter.Notify(ctx, err.Error())
	}
}

// AskContactLevel returns 1 for a confirmed case, 2 for a suspected case
// and 3 for any other case.
func (e *Engine) AskContactLevel(ctx context.Context) (int, error) {
	q := Question{
		Key:     KeyContactLevel,
		Text:    "The level of contact of the resident has been:",
		Kind:    KindContactLevel,
		Options: contactLevels,
	}
	for {
		answer, err := e.prompter.Ask(ctx, q)
		if err != nil {
			return 0, fmt.Errorf("ask %s: %w", q.Key, err)
		}

		level, err := strconv.Atoi(strings.TrimSpace(answer))
		if err == nil && level >= 1 && level <= len(contactLevels) {
			return level, nil
		}
		e.prompter.Notify(ctx, ErrInvalidContactLevel.Error())
	}
}

// AskRATKit asks a resident making a home booking whether they will
// collect a RAT kit from a testing site.
func (e *Engine) AskRATKit(ctx context.Context) (bool, error) {
	return e.AskYesNo(ctx, KeyRATKit, "Would you like to collect your RAT kits from a test center ?")
}

func (e *Engine) AskSuburb(ctx context.Context) (string, error) {
	answer, err := e.prompter.Ask(ctx, Question{Key: KeySuburb, Text: "Please enter the suburb name:", Kind: KindText})
	if err != nil {
		return "", fmt.Errorf("ask %s: %w", KeySuburb, err)
	}
	return strings.TrimSpace(answer), nil
}

// Conduct runs the on-site interview: travel, RAT result, contact level,
// every symptom in catalog order and a final confirmation. Declining to
// submit returns ErrInterviewAborted.
func (e *Engine) Conduct(ctx context.Context) (triage.Assessment, error) {
	var a triage.Assessment
	var err error

	a.OverseasTravel, err = e.AskYesNo(ctx, KeyOverseasTravel, "Have you travelled overseas in the last 7 days ?")
	if err != nil {
		return triage.Assessment{}, err
	}
	a.RATPositive, err = e.AskYesNo(ctx, KeyRATPositive, "Have you received a positive RAT test result in the last 7 days ?")
	if err != nil {
		return triage.Assessment{}, err
	}
	a.ContactLevel, err = e.AskContactLevel(ctx)
	if err != nil {
		return triage.Assessment{}, err
	}

	e.prompter.Notify(ctx, "Which of the following symptoms does the resident have ?")
	counts := map[symptom.Tier]*int{
		symptom.Mild:     &a.MildCount,
		symptom.Moderate: &a.ModerateCount,
		symptom.Severe:   &a.SevereCount,
	}
	for _, tier := range symptom.Tiers {
		for _, name := range e.catalog.Symptoms(tier) {
			has, err := e.AskYesNo(ctx, SymptomKey(name), "Does the Resident have "+name+"?")
			if err != nil {
				return triage.Assessment{}, err
			}
			if has {
				*counts[tier]++
			}
		}
	}

	submit, err := e.AskYesNo(ctx, KeyConfirmSubmit, "Are you sure you want to submit the form ?")
	if err != nil {
		return triage.Assessment{}, err
	}
	if !submit {
		return triage.Assessment{}, ErrInterviewAborted
	}
	return a, nil
}

package interview

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingAnswer  = errors.New("missing answer")
	ErrAnswerRejected = errors.New("answer rejected")
)

// AnswerSheet replays answers collected up front, keyed by question key.
// A sheet cannot correct itself, so a question asked again after a notice
// fails with ErrAnswerRejected carrying that notice.
type AnswerSheet struct {
	answers map[string]string
	asked   map[string]bool
	notice  string
	notices []string
}

func NewAnswerSheet(answers map[string]string) *AnswerSheet {
	return &AnswerSheet{answers: answers, asked: map[string]bool{}}
}

func (s *AnswerSheet) Ask(ctx context.Context, q Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.asked[q.Key] {
		return "", fmt.Errorf("%w: %s: %s", ErrAnswerRejected, q.Key, s.notice)
	}
	s.asked[q.Key] = true

	answer, ok := s.answers[q.Key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingAnswer, q.Key)
	}
	return answer, nil
}

func (s *AnswerSheet) Notify(_ context.Context, msg string) {
	s.notice = msg
	s.notices = append(s.notices, msg)
}

// Notices returns every message shown during the interview.
func (s *AnswerSheet) Notices() []string {
	return append([]string(nil), s.notices...)
}

package pkg

import (
	"context"
	"sync/atomic"
)

// StubResponder is the Responder used when no chat API key is configured.
// It cycles through canned replies so the rest of the system can run end to
// end without the remote service.
type StubResponder struct {
	replies []string
	next    atomic.Uint64
}

func NewStubResponder() *StubResponder {
	return &StubResponder{
		replies: []string{
			"Tell me more about that.",
			"I was just thinking about you.",
			"That sounds wonderful. What happened next?",
			"Mmm, I like the way you put that.",
			"You always know how to make me smile.",
		},
	}
}

// Respond implements Responder
func (s *StubResponder) Respond(_ context.Context, _ string, _ []RequestMessage, _ string, stream func(string)) (string, error) {
	reply := s.replies[s.next.Add(1)%uint64(len(s.replies))]
	if stream != nil {
		stream(reply)
	}
	return reply, nil
}

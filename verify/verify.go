// Package verify implements the arithmetic captcha flow that gates the
// verified role. Challenges are single use: answering one, correctly or not,
// consumes it, and the only remedy for a wrong answer is a fresh challenge.
package verify

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome of resolving a challenge token.
type Outcome int

const (
	// Correct means the submitted answer matched; the caller still has to
	// grant the role and report that failure separately.
	Correct Outcome = iota
	// Incorrect consumes the challenge too.
	Incorrect
	// NotFound covers expired, forged, and already-resolved tokens.
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "not_found"
	}
}

// Challenge is one pending verification puzzle, owned by the Store until
// resolved.
type Challenge struct {
	Token       string
	Question    string
	RequesterID string
	GuildID     string
	CreatedAt   time.Time

	answer string
}

// Result carries the outcome plus the identity the role grant applies to.
// RequesterID/GuildID are only set when the token was found.
type Result struct {
	Outcome     Outcome
	RequesterID string
	GuildID     string
}

// Store holds pending challenges keyed by token.
type Store struct {
	mu      sync.Mutex
	pending map[string]Challenge
}

func NewStore() *Store {
	return &Store{pending: make(map[string]Challenge)}
}

// Issue creates a new arithmetic puzzle bound to the requester and stores it
// under a fresh unique token.
func (s *Store) Issue(requesterID, guildID string) Challenge {
	question, answer := newPuzzle()
	ch := Challenge{
		Token:       uuid.NewString(),
		Question:    question,
		RequesterID: requesterID,
		GuildID:     guildID,
		CreatedAt:   time.Now(),
		answer:      answer,
	}
	s.mu.Lock()
	s.pending[ch.Token] = ch
	s.mu.Unlock()
	return ch
}

// Resolve looks up and unconditionally deletes the challenge, then compares
// the trimmed submission against the expected answer. Lookup and delete
// happen under one lock acquisition, so only one resolver can ever win a
// token, even under racing duplicate submissions.
func (s *Store) Resolve(token, submitted string) Result {
	s.mu.Lock()
	ch, ok := s.pending[token]
	if ok {
		delete(s.pending, token)
	}
	s.mu.Unlock()
	if !ok {
		return Result{Outcome: NotFound}
	}
	res := Result{RequesterID: ch.RequesterID, GuildID: ch.GuildID}
	if strings.TrimSpace(submitted) == ch.answer {
		res.Outcome = Correct
	} else {
		res.Outcome = Incorrect
	}
	return res
}

// Pending returns the number of unanswered challenges.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Sweep drops challenges older than maxAge and returns how many were removed.
// Challenges have no expiry on their own; this exists so a janitor can bound
// the map when the bot runs for months.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for tok, ch := range s.pending {
		if ch.CreatedAt.Before(cutoff) {
			delete(s.pending, tok)
			removed++
		}
	}
	return removed
}

// newPuzzle returns a question like "3 - 7" and its exact answer as a
// canonical decimal string. Subtraction may go negative; the answer is
// compared as a string, never re-parsed.
func newPuzzle() (question, answer string) {
	a := rand.Intn(9) + 1
	b := rand.Intn(9) + 1
	var op string
	var n int
	switch rand.Intn(3) {
	case 0:
		op, n = "+", a+b
	case 1:
		op, n = "-", a-b
	default:
		op, n = "*", a*b
	}
	return fmt.Sprintf("%d %s %d", a, op, b), strconv.Itoa(n)
}

package verify

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// solve recomputes the expected answer from the rendered question so tests
// don't reach into the generator.
func solve(t *testing.T, question string) string {
	t.Helper()
	parts := strings.Fields(question)
	if len(parts) != 3 {
		t.Fatalf("malformed question %q", question)
	}
	a, err1 := strconv.Atoi(parts[0])
	b, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		t.Fatalf("non-numeric operands in %q", question)
	}
	switch parts[1] {
	case "+":
		return strconv.Itoa(a + b)
	case "-":
		return strconv.Itoa(a - b)
	case "*":
		return strconv.Itoa(a * b)
	}
	t.Fatalf("unknown operator in %q", question)
	return ""
}

func TestIssueAndResolveCorrect(t *testing.T) {
	s := NewStore()
	ch := s.Issue("u-1", "g-1")
	if ch.Token == "" || ch.Question == "" {
		t.Fatalf("Issue() returned incomplete challenge: %+v", ch)
	}
	res := s.Resolve(ch.Token, solve(t, ch.Question))
	if res.Outcome != Correct {
		t.Fatalf("Resolve() = %v, want Correct", res.Outcome)
	}
	if res.RequesterID != "u-1" || res.GuildID != "g-1" {
		t.Errorf("Resolve() identity = %q/%q, want u-1/g-1", res.RequesterID, res.GuildID)
	}
}

func TestResolveTrimsWhitespace(t *testing.T) {
	s := NewStore()
	ch := s.Issue("u-1", "g-1")
	if res := s.Resolve(ch.Token, "  "+solve(t, ch.Question)+"\n"); res.Outcome != Correct {
		t.Fatalf("Resolve() with padded answer = %v, want Correct", res.Outcome)
	}
}

func TestResolveSingleUse(t *testing.T) {
	s := NewStore()
	ch := s.Issue("u-1", "g-1")
	if res := s.Resolve(ch.Token, solve(t, ch.Question)); res.Outcome != Correct {
		t.Fatalf("first Resolve() = %v, want Correct", res.Outcome)
	}
	if res := s.Resolve(ch.Token, solve(t, ch.Question)); res.Outcome != NotFound {
		t.Fatalf("second Resolve() = %v, want NotFound", res.Outcome)
	}
}

func TestResolveWrongAnswerConsumesChallenge(t *testing.T) {
	s := NewStore()
	ch := s.Issue("u-1", "g-1")
	if res := s.Resolve(ch.Token, "999"); res.Outcome != Incorrect {
		t.Fatalf("Resolve() with wrong answer = %v, want Incorrect", res.Outcome)
	}
	// Even a wrong answer burns the token.
	if res := s.Resolve(ch.Token, solve(t, ch.Question)); res.Outcome != NotFound {
		t.Fatalf("Resolve() after consumed = %v, want NotFound", res.Outcome)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	s := NewStore()
	if res := s.Resolve("no-such-token", "1"); res.Outcome != NotFound {
		t.Fatalf("Resolve() = %v, want NotFound", res.Outcome)
	}
}

func TestNegativeSubtractionComparedAsString(t *testing.T) {
	s := NewStore()
	s.pending["tok-neg"] = Challenge{
		Token:       "tok-neg",
		Question:    "3 - 7",
		RequesterID: "u-1",
		GuildID:     "g-1",
		CreatedAt:   time.Now(),
		answer:      "-4",
	}
	if res := s.Resolve("tok-neg", "4"); res.Outcome != Incorrect {
		t.Fatalf("Resolve(\"4\") = %v, want Incorrect", res.Outcome)
	}
	s.pending["tok-neg2"] = Challenge{Token: "tok-neg2", Question: "3 - 7", answer: "-4", CreatedAt: time.Now()}
	if res := s.Resolve("tok-neg2", "-4"); res.Outcome != Correct {
		t.Fatalf("Resolve(\"-4\") = %v, want Correct", res.Outcome)
	}
}

func TestPuzzleAnswersExact(t *testing.T) {
	s := NewStore()
	for i := 0; i < 200; i++ {
		ch := s.Issue("u", "g")
		if res := s.Resolve(ch.Token, solve(t, ch.Question)); res.Outcome != Correct {
			t.Fatalf("puzzle %q: recomputed answer rejected", ch.Question)
		}
	}
}

func TestIssueTokensUniqueUnderConcurrency(t *testing.T) {
	s := NewStore()
	const n = 100
	tokens := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- s.Issue("u", "g").Token
		}()
	}
	wg.Wait()
	close(tokens)
	seen := make(map[string]bool, n)
	for tok := range tokens {
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
	if s.Pending() != n {
		t.Errorf("Pending() = %d, want %d", s.Pending(), n)
	}
}

func TestConcurrentResolveOnlyOneWins(t *testing.T) {
	s := NewStore()
	ch := s.Issue("u-1", "g-1")
	answer := solve(t, ch.Question)

	const racers = 20
	outcomes := make(chan Outcome, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- s.Resolve(ch.Token, answer).Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	correct, notFound := 0, 0
	for o := range outcomes {
		switch o {
		case Correct:
			correct++
		case NotFound:
			notFound++
		default:
			t.Fatalf("unexpected outcome %v", o)
		}
	}
	if correct != 1 {
		t.Fatalf("got %d Correct resolutions, want exactly 1", correct)
	}
	if notFound != racers-1 {
		t.Fatalf("got %d NotFound, want %d", notFound, racers-1)
	}
}

func TestSweep(t *testing.T) {
	s := NewStore()
	old := s.Issue("u-old", "g")
	s.pending[old.Token] = Challenge{Token: old.Token, CreatedAt: time.Now().Add(-time.Hour), answer: "1"}
	fresh := s.Issue("u-new", "g")

	if removed := s.Sweep(10 * time.Minute); removed != 1 {
		t.Fatalf("Sweep() removed %d, want 1", removed)
	}
	if res := s.Resolve(old.Token, "1"); res.Outcome != NotFound {
		t.Errorf("swept token should resolve NotFound, got %v", res.Outcome)
	}
	if res := s.Resolve(fresh.Token, solve(t, fresh.Question)); res.Outcome != Correct {
		t.Errorf("fresh token should survive sweep, got %v", res.Outcome)
	}
}

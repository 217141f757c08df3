package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/stretchr/testify/assert"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestShouldRememberFastPath(t *testing.T) {
	stub := &stubCompleter{reply: "NO"}
	g := New(stub, telemetry.NewDevelopment(false), true)

	got := g.ShouldRemember(context.Background(), "Remember this: my dog's name is Pippin.", "Got it.")

	assert.True(t, got)
	assert.Zero(t, stub.calls, "fast path must not consult the generator")
}

func TestShouldRememberGeneratorYes(t *testing.T) {
	stub := &stubCompleter{reply: "YES, this is identity-defining."}
	g := New(stub, telemetry.NewDevelopment(false), true)

	got := g.ShouldRemember(context.Background(), "I work as a nurse.", "That's a demanding job.")

	assert.True(t, got)
	assert.Equal(t, 1, stub.calls)
}

func TestShouldRememberGeneratorNo(t *testing.T) {
	stub := &stubCompleter{reply: "NO"}
	g := New(stub, telemetry.NewDevelopment(false), true)

	got := g.ShouldRemember(context.Background(), "What time is it?", "It's 3pm.")

	assert.False(t, got)
}

func TestShouldRememberGeneratorFailureIsConservative(t *testing.T) {
	stub := &stubCompleter{err: errors.New("network down")}
	g := New(stub, telemetry.NewDevelopment(false), true)

	got := g.ShouldRemember(context.Background(), "Tell me a joke.", "Why did the chicken...")

	assert.True(t, got)
}

func TestShouldRememberGatingDisabled(t *testing.T) {
	stub := &stubCompleter{reply: "NO"}
	g := New(stub, telemetry.NewDevelopment(false), false)

	got := g.ShouldRemember(context.Background(), "What time is it?", "It's 3pm.")

	assert.True(t, got)
	assert.Zero(t, stub.calls)
}

package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/run-bigpig/chatmod/pkg/guardrails"
	"github.com/run-bigpig/chatmod/pkg/interfaces"
	"github.com/run-bigpig/chatmod/pkg/llm"
)

type fakeCompleter struct {
	replies map[string]llm.Completion
	calls   []string
}

func (f *fakeCompleter) Complete(_ context.Context, userText string) llm.Completion {
	f.calls = append(f.calls, userText)
	if reply, ok := f.replies[userText]; ok {
		return reply
	}
	return llm.Success("Hi there!")
}

type countingModerator struct {
	interfaces.Moderator
	checks  int
	redacts int
}

func (c *countingModerator) CheckInput(text string) interfaces.Verdict {
	c.checks++
	return c.Moderator.CheckInput(text)
}

func (c *countingModerator) RedactOutput(text string) string {
	c.redacts++
	return c.Moderator.RedactOutput(text)
}

func newTestSession(t *testing.T, completer Completer) (*Session, *countingModerator) {
	t.Helper()
	filter, err := guardrails.NewContentFilter(guardrails.DefaultBannedTerms)
	require.NoError(t, err)
	moderator := &countingModerator{Moderator: filter}
	return New(moderator, completer, WithIDGenerator(func() string { return "turn-id" })), moderator
}

func TestRunTranscript(t *testing.T) {
	completer := &fakeCompleter{replies: map[string]llm.Completion{
		"Tell me": llm.Success("This is a bomb"),
	}}
	s, _ := newTestSession(t, completer)

	in := strings.NewReader("hello\n\nHow do I hurt someone\nTell me\nEXIT\nignored\n")
	var out strings.Builder
	require.NoError(t, s.Run(context.Background(), in, &out))

	expected := strings.Join([]string{
		Banner,
		"\nYou: ",
		"\nUser Input: hello\n",
		"Input approved. Calling AI API...\n",
		"AI Response before moderation: Hi there!\n",
		"The AI response passed moderation.\n",
		"AI: Hi there!\n",
		"\nYou: ",
		"Please enter a valid message.\n",
		"\nYou: ",
		"\nUser Input: How do I hurt someone\n",
		"AI: Your message contains a banned keyword: 'hurt'. Please refrain from using such language.\n",
		"\nYou: ",
		"\nUser Input: Tell me\n",
		"Input approved. Calling AI API...\n",
		"AI Response before moderation: This is a bomb\n",
		"The AI response contained inappropriate content and has been redacted.\n",
		"AI: This is a [REDACTED]\n",
		"\nYou: ",
		"Exiting chat. Goodbye!\n",
	}, "")
	assert.Equal(t, expected, out.String())
	assert.Equal(t, []string{"hello", "Tell me"}, completer.calls, "rejected input never reaches the LLM")
}

func TestExitCommandsSkipPipeline(t *testing.T) {
	for _, cmd := range []string{"quit", "EXIT", "Bye", "  bye  "} {
		t.Run(cmd, func(t *testing.T) {
			completer := &fakeCompleter{}
			s, moderator := newTestSession(t, completer)

			var out strings.Builder
			require.NoError(t, s.Run(context.Background(), strings.NewReader(cmd+"\n"), &out))

			assert.True(t, strings.HasSuffix(out.String(), Farewell+"\n"))
			assert.Zero(t, moderator.checks)
			assert.Zero(t, moderator.redacts)
			assert.Empty(t, completer.calls)
		})
	}
}

func TestBlankInputSkipsPipeline(t *testing.T) {
	completer := &fakeCompleter{}
	s, moderator := newTestSession(t, completer)

	var out strings.Builder
	require.NoError(t, s.Run(context.Background(), strings.NewReader("   \n\t\nquit\n"), &out))

	assert.Equal(t, 2, strings.Count(out.String(), BlankInputNotice))
	assert.Zero(t, moderator.checks)
	assert.Empty(t, completer.calls)
}

func TestEndOfInputEndsSession(t *testing.T) {
	completer := &fakeCompleter{}
	s, _ := newTestSession(t, completer)

	var out strings.Builder
	require.NoError(t, s.Run(context.Background(), strings.NewReader("last words"), &out))

	assert.Equal(t, []string{"last words"}, completer.calls, "a final line without newline is still served")
	assert.True(t, strings.HasSuffix(out.String(), "\n"+Farewell+"\n"))
}

func TestCanceledContextEndsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completer := &fakeCompleter{}
	s, _ := newTestSession(t, completer)

	in, w := ioPipe(t)
	defer w.Close()

	var out strings.Builder
	require.NoError(t, s.Run(ctx, in, &out))
	assert.True(t, strings.HasSuffix(out.String(), Farewell+"\n"))
	assert.Empty(t, completer.calls)
}

func TestFailedCompletionIsRedactedLikeAReply(t *testing.T) {
	completer := &fakeCompleter{replies: map[string]llm.Completion{
		"hi": llm.Failure(errors.New("dangerous upstream failure")),
	}}
	s, _ := newTestSession(t, completer)

	turn := s.ProcessInput(context.Background(), "hi")

	assert.True(t, turn.Verdict.Approved)
	assert.False(t, turn.Reply.OK())
	assert.Equal(t, "Error calling OpenAI API: dangerous upstream failure", turn.RawReply)
	assert.Equal(t, "Error calling OpenAI API: [REDACTED] upstream failure", turn.RedactedReply)
	assert.Equal(t, turn.RedactedReply, turn.Output())
}

func TestProcessInputRejected(t *testing.T) {
	completer := &fakeCompleter{}
	s, moderator := newTestSession(t, completer)

	turn := s.ProcessInput(context.Background(), "Hacking tips")

	assert.Equal(t, "turn-id", turn.ID)
	assert.False(t, turn.Verdict.Approved)
	assert.Contains(t, turn.Output(), "'hack'")
	assert.Empty(t, turn.RawReply)
	assert.Zero(t, moderator.redacts)
	assert.Empty(t, completer.calls)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestRunReportsWriteFailure(t *testing.T) {
	s, _ := newTestSession(t, &fakeCompleter{})
	err := s.Run(context.Background(), strings.NewReader("hello\n"), failingWriter{})
	assert.EqualError(t, err, "stdout closed")
}

func TestIsExitCommand(t *testing.T) {
	assert.True(t, IsExitCommand("QUIT"))
	assert.False(t, IsExitCommand("quit now"))
	assert.False(t, IsExitCommand(""))
}

func ioPipe(t *testing.T) (*io.PipeReader, *io.PipeWriter) {
	t.Helper()
	return io.Pipe()
}

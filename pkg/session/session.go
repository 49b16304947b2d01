// Package session runs the interactive chat loop: read a line, moderate it,
// ask the LLM, redact the reply, print it.
package session

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/run-bigpig/chatmod/pkg/guardrails"
	"github.com/run-bigpig/chatmod/pkg/interfaces"
	"github.com/run-bigpig/chatmod/pkg/llm"
	"github.com/run-bigpig/chatmod/pkg/logging"
)

// Console text
const (
	Banner           = "Welcome to the Chat Moderator!\nType 'exit' to quit.\n-----------------------------------\n"
	Prompt           = "\nYou: "
	Farewell         = "Exiting chat. Goodbye!"
	BlankInputNotice = "Please enter a valid message."
	approvedNotice   = "Input approved. Calling AI API..."
	redactedNotice   = "The AI response contained inappropriate content and has been redacted."
	passedNotice     = "The AI response passed moderation."
)

// ExitCommands end the session when typed on their own, in any case
var ExitCommands = []string{"quit", "exit", "bye"}

// Completer produces a reply for one user message
type Completer interface {
	Complete(ctx context.Context, userText string) llm.Completion
}

// Turn is the record of one pass through the pipeline
type Turn struct {
	ID            string
	RawInput      string
	Verdict       interfaces.Verdict
	Reply         llm.Completion
	RawReply      string
	RedactedReply string
}

// Output is the text shown after "AI: " for this turn
func (t Turn) Output() string {
	if !t.Verdict.Approved {
		return t.Verdict.Reason
	}
	return t.RedactedReply
}

// Session wires a moderator and a completer to a console
type Session struct {
	moderator interfaces.Moderator
	completer Completer
	logger    logging.Logger
	newID     func() string
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger for the session
func WithLogger(logger logging.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithIDGenerator replaces the turn ID source
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) {
		s.newID = newID
	}
}

// New creates a new session
func New(moderator interfaces.Moderator, completer Completer, options ...Option) *Session {
	s := &Session{
		moderator: moderator,
		completer: completer,
		logger:    logging.Nop(),
		newID:     uuid.NewString,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// IsExitCommand reports whether input ends the session
func IsExitCommand(input string) bool {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, cmd := range ExitCommands {
		if normalized == cmd {
			return true
		}
	}
	return false
}

// Run prints the banner and serves turns until an exit command, end of
// input or cancellation of ctx. Only a failure to write to out is an error.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	p := &printer{w: out}
	p.print(Banner)

	done := make(chan struct{})
	defer close(done)

	lines := readLines(done, in)
	for p.err == nil {
		p.print(Prompt)
		if p.err != nil {
			break
		}

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Session interrupted", nil)
			p.println("")
			p.println(Farewell)
			return p.err
		case line, ok = <-lines:
		}

		if !ok {
			s.logger.Debug(ctx, "End of input", nil)
			p.println("")
			p.println(Farewell)
			break
		}

		if IsExitCommand(line) {
			p.println(Farewell)
			break
		}

		if strings.TrimSpace(line) == "" {
			p.println(BlankInputNotice)
			continue
		}

		turn := s.turn(ctx, p, line)
		p.println("AI: " + turn.Output())
	}

	return p.err
}

// ProcessInput runs one pipeline pass for text without console output
func (s *Session) ProcessInput(ctx context.Context, text string) Turn {
	return s.turn(ctx, &printer{w: io.Discard}, text)
}

func (s *Session) turn(ctx context.Context, p *printer, text string) Turn {
	t := Turn{ID: s.newID(), RawInput: text}
	ctx = logging.WithTurnID(ctx, t.ID)

	p.println("")
	p.println("User Input: " + text)

	t.Verdict = s.moderator.CheckInput(text)
	if !t.Verdict.Approved {
		s.logger.Info(ctx, "Input rejected by moderation", map[string]interface{}{"reason": t.Verdict.Reason})
		return t
	}

	p.println(approvedNotice)
	s.logger.Debug(ctx, "Input approved", map[string]interface{}{"length": len(text)})

	t.Reply = s.completer.Complete(ctx, text)
	t.RawReply = t.Reply.Reply()
	p.println("AI Response before moderation: " + t.RawReply)

	t.RedactedReply = s.moderator.RedactOutput(t.RawReply)
	if guardrails.Redacted(t.RedactedReply) {
		p.println(redactedNotice)
		s.logger.Info(ctx, "Reply redacted", nil)
	} else {
		p.println(passedNotice)
	}

	return t
}

// readLines feeds input lines, without line terminators, until EOF, a read
// error or done. The channel is closed when input ends. A read already
// blocked on in is abandoned, not interrupted.
func readLines(done <-chan struct{}, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" || err == nil {
				line = strings.TrimRight(line, "\r\n")
				select {
				case lines <- line:
				case <-done:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

// printer keeps the first write error and drops later writes
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) print(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) println(s string) {
	p.print(s + "\n")
}

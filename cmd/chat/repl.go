package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"chat-responder/internal/domain"
	"chat-responder/internal/usecase"
)

const (
	prompt              = "you> "
	defaultHistoryTurns = 10
	helpText            = "Commands: /history [n], /teach <trigger> = <answer>, /knowledge, /new, /quit"
)

type chatService interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
	History(ctx context.Context, in usecase.HistoryInput) ([]domain.Turn, error)
	Teach(ctx context.Context, in usecase.TeachInput) (domain.KnowledgeEntry, error)
	Knowledge(ctx context.Context) ([]domain.KnowledgeEntry, error)
}

type repl struct {
	svc       chatService
	out       io.Writer
	logger    *slog.Logger
	sessionID string
}

func newREPL(svc chatService, out io.Writer, logger *slog.Logger) *repl {
	return &repl{svc: svc, out: out, logger: logger}
}

// run reads lines from in until EOF, /quit or ctx is cancelled. Reading
// happens on its own goroutine so an interrupt is noticed while blocked on
// input or on a reply.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	fmt.Fprintln(r.out, "Bot: Hi! Type a message, or /quit to leave.")
	fmt.Fprintln(r.out, helpText)
	for {
		fmt.Fprint(r.out, prompt)
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		quit, err := r.handle(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			r.logger.ErrorContext(ctx, "command failed", "err", err)
			fmt.Fprintf(r.out, "Bot: Sorry, something went wrong (%v).\n", err)
			continue
		}
		if quit {
			fmt.Fprintln(r.out, "Bot: Goodbye!")
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (quit bool, err error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return false, r.chat(ctx, line)
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		r.sessionID = ""
		fmt.Fprintln(r.out, "Bot: Started a new conversation.")
		return false, nil
	case "/history":
		return false, r.history(ctx, arg)
	case "/teach":
		return false, r.teach(ctx, arg)
	case "/knowledge":
		return false, r.knowledge(ctx)
	case "/help":
		fmt.Fprintln(r.out, helpText)
		return false, nil
	default:
		fmt.Fprintf(r.out, "Bot: Unknown command %q. %s\n", cmd, helpText)
		return false, nil
	}
}

type chatResult struct {
	out usecase.ChatOutput
	err error
}

func (r *repl) chat(ctx context.Context, text string) error {
	done := make(chan chatResult, 1)
	go func() {
		out, err := r.svc.Chat(ctx, usecase.ChatInput{Message: text, SessionID: r.sessionID})
		done <- chatResult{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		r.sessionID = res.out.SessionID
		fmt.Fprintf(r.out, "Bot: %s\n", res.out.Reply)
		return nil
	}
}

func (r *repl) history(ctx context.Context, arg string) error {
	limit := defaultHistoryTurns
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			fmt.Fprintln(r.out, "Bot: Usage: /history [n] with n a positive number.")
			return nil
		}
		limit = n
	}
	if r.sessionID == "" {
		fmt.Fprintln(r.out, "Bot: Nothing said yet in this conversation.")
		return nil
	}

	turns, err := r.svc.History(ctx, usecase.HistoryInput{SessionID: r.sessionID, Limit: limit})
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintln(r.out, "Bot: Nothing said yet in this conversation.")
		return nil
	}
	// Oldest first reads naturally in a terminal.
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		fmt.Fprintf(r.out, "  [%s] you: %s\n  [%s] bot: %s\n",
			t.Timestamp.Local().Format("15:04:05"), t.UserText,
			t.Timestamp.Local().Format("15:04:05"), t.BotText)
	}
	return nil
}

func (r *repl) teach(ctx context.Context, arg string) error {
	trigger, answer, ok := strings.Cut(arg, "=")
	trigger, answer = strings.TrimSpace(trigger), strings.TrimSpace(answer)
	if !ok || trigger == "" || answer == "" {
		fmt.Fprintln(r.out, "Bot: Usage: /teach <trigger> = <answer>")
		return nil
	}

	entry, err := r.svc.Teach(ctx, usecase.TeachInput{Trigger: trigger, Answer: answer})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Bot: Got it. When you mention %q I'll say: %s\n", entry.Trigger, entry.Answer)
	return nil
}

func (r *repl) knowledge(ctx context.Context) error {
	entries, err := r.svc.Knowledge(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "Bot: I don't know anything yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "  %-20s %-12s %.1f  %s\n", e.Trigger, e.Category, e.EffectiveConfidence(), e.Answer)
	}
	return nil
}

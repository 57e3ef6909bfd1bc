package main

import (
	"context"
	"fmt"
	"io"
	"ithakabot/internal/model"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// MessageHandler runs one applicant message through the wizard
type MessageHandler interface {
	HandleMessage(ctx context.Context, conversationID, text string) (*model.Reply, error)
}

type repl struct {
	chat           MessageHandler
	conversationID string
	out            io.Writer
}

func newREPL(chat MessageHandler, conversationID string, out io.Writer) *repl {
	return &repl{chat: chat, conversationID: conversationID, out: out}
}

// Run starts the REPL loop
func (r *repl) Run(ctx context.Context, online bool) error {
	cyan := color.New(color.FgCyan).SprintFunc()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("tú> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.printWelcome(online)

	// A greeting starts a new session or resumes a paused one
	if _, err := r.processInput(ctx, "hola"); err != nil {
		return err
	}

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				// Pause so the next run re-asks the open question
				if _, err := r.chat.HandleMessage(ctx, r.conversationID, "guardar"); err != nil {
					return err
				}
				fmt.Fprintf(r.out, "\nHasta luego. Retoma con --conversation %s\n", r.conversationID)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		done, err := r.processInput(ctx, line)
		if err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
			continue
		}
		if done {
			return nil
		}
	}
}

// processInput sends one line and prints the reply. It reports true once the
// application is complete.
func (r *repl) processInput(ctx context.Context, line string) (bool, error) {
	reply, err := r.chat.HandleMessage(ctx, r.conversationID, line)
	if err != nil {
		return false, err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n%s\n\n", green("Ithaka:"), reply.Response)

	if reply.Completed && reply.ApplicationID != "" {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(r.out, "%s %s\n", yellow("Postulación:"), reply.ApplicationID)
		return true, nil
	}
	return false, nil
}

func (r *repl) printWelcome(online bool) {
	bold := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "%s (conversación %s)\n", bold("Asistente de postulación Ithaka"), r.conversationID)
	if !online {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintln(r.out, yellow("Sin clave de IA: las respuestas se aceptan tal cual."))
	}
}

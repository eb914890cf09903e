package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agrisense/farm-advisor/internal/advisor"
	"github.com/agrisense/farm-advisor/internal/app"
	"github.com/agrisense/farm-advisor/internal/config"
)

const defaultAskTimeout = 120 * time.Second

// Asker is the slice of the advisor the ask command drives.
type Asker interface {
	Ask(ctx context.Context, q advisor.Question) (advisor.Answer, error)
}

func newAskCommand(logger *slog.Logger) *cobra.Command {
	var (
		farmID     string
		language   string
		timeoutSec int
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the advisor about a farm using the local database",
		Long:  "Answers one question, or starts an interactive session when no question is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(farmID) == "" {
				return errors.New("--farm is required")
			}
			core, err := app.NewCore(cmd.Context(), config.FromEnv(), logger)
			if err != nil {
				return err
			}
			defer core.Close()

			timeout := boundedTimeout(timeoutSec)
			question := strings.TrimSpace(strings.Join(args, " "))
			if question != "" {
				return askOnce(cmd, core.Advisor, farmID, language, question, timeout)
			}
			cmd.Printf("Advisor for farm %s. Type /exit to quit.\n", farmID)
			return runInteractiveAsk(cmd, core.Advisor, farmID, language, timeout)
		},
	}
	cmd.Flags().StringVar(&farmID, "farm", "", "farm id")
	cmd.Flags().StringVar(&language, "lang", advisor.DefaultLanguage, "answer language: en, kn, hi or ta")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 120, "request timeout in seconds")
	return cmd
}

func askOnce(cmd *cobra.Command, asker Asker, farmID, language, question string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(cmdContext(cmd), timeout)
	defer cancel()
	answer, err := asker.Ask(ctx, advisor.Question{FarmID: farmID, Text: question, Language: language})
	if err != nil {
		return err
	}
	cmd.Println(strings.TrimSpace(answer.Text))
	return nil
}

func runInteractiveAsk(cmd *cobra.Command, asker Asker, farmID, language string, timeout time.Duration) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		cmd.Print("you> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/exit" || text == "/quit" {
			return nil
		}

		ctx, cancel := context.WithTimeout(cmdContext(cmd), timeout)
		answer, err := asker.Ask(ctx, advisor.Question{FarmID: farmID, Text: text, Language: language})
		cancel()
		if err != nil {
			cmd.PrintErrf("ask failed: %v\n", err)
			continue
		}
		printReply(cmd, strings.TrimSpace(answer.Text))
	}
	return scanner.Err()
}

func printReply(cmd *cobra.Command, reply string) {
	if reply == "" {
		cmd.Println("advisor> (no reply)")
		return
	}
	for index, line := range strings.Split(reply, "\n") {
		line = strings.TrimRight(line, "\r")
		if index == 0 {
			cmd.Printf("advisor> %s\n", line)
			continue
		}
		cmd.Printf("         %s\n", line)
	}
}

func newContextCommand(logger *slog.Logger) *cobra.Command {
	var farmID string
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the farm context document as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(farmID) == "" {
				return errors.New("--farm is required")
			}
			core, err := app.NewCore(cmd.Context(), config.FromEnv(), logger)
			if err != nil {
				return err
			}
			defer core.Close()

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(core.Contexts.Build(cmdContext(cmd), farmID))
		},
	}
	cmd.Flags().StringVar(&farmID, "farm", "", "farm id")
	return cmd
}

func boundedTimeout(timeoutSec int) time.Duration {
	if timeoutSec < 1 || timeoutSec > 600 {
		return defaultAskTimeout
	}
	return time.Duration(timeoutSec) * time.Second
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

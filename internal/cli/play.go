package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"quiz-runner/internal/app"
	"quiz-runner/internal/config"
	"quiz-runner/internal/domain"
)

const localRunID = "local"

// NewPlayCmd runs a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		setID   string
		seconds int
		shuffle bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			if setID != "" {
				cfg.Quiz.Set = setID
			}
			if cmd.Flags().Changed("seconds") {
				cfg.Quiz.DefaultSeconds = seconds
			}
			if cmd.Flags().Changed("shuffle") {
				cfg.Quiz.Shuffle = shuffle
			}

			res, err := openResources(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := res.Close(); cerr != nil {
					err = multierror.Append(err, cerr)
				}
			}()

			service, defaultSet, err := res.runService(app.NewTickerScheduler())
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), service, defaultSet)
		},
	}
	cmd.Flags().StringVar(&setID, "set", "", "question set id")
	cmd.Flags().IntVar(&seconds, "seconds", 15, "default seconds per question")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "shuffle question order")
	return cmd
}

func runPlay(ctx context.Context, in io.Reader, out io.Writer, service *app.RunService, setID string) error {
	presenter := &terminalPresenter{out: out}
	driver, err := service.Open(ctx, setID, localRunID, presenter)
	if err != nil {
		return err
	}
	defer service.Release(localRunID, presenter)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch line {
		case "":
			continue
		case "q", "quit":
			return nil
		case "p", "pause":
			driver.TogglePause()
		case "r", "restart":
			driver.Restart(ctx)
		case "x", "reset":
			if err := driver.ResetAll(ctx); err != nil {
				presenter.printf("could not reset progress: %v\n", err)
			}
		default:
			value, ok := parseTerminalAnswer(line)
			if !ok {
				presenter.printf("enter an option number, t/f, p to pause, r to restart, x to reset bests or q to quit\n")
				continue
			}
			if _, accepted := driver.Answer(ctx, value); !accepted {
				presenter.printf("(answer not accepted)\n")
			}
		}
	}
	return scanner.Err()
}

// parseTerminalAnswer reads 1-based option numbers and t/f.
func parseTerminalAnswer(line string) (domain.Answer, bool) {
	switch line {
	case "t", "true":
		return domain.TrueFalse(true), true
	case "f", "false":
		return domain.TrueFalse(false), true
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 {
		return nil, false
	}
	return domain.Choice(n - 1), true
}

// terminalPresenter writes plain text; ticks arrive on the timer goroutine.
type terminalPresenter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *terminalPresenter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *terminalPresenter) ShowQuestion(q domain.Question, index, total int, score domain.Score) {
	var b strings.Builder
	fmt.Fprintf(&b, "\nQuestion %d/%d  (score %d/%d, streak %d)\n%s\n", index+1, total, score.Correct, score.Total, score.Streak, q.Prompt)
	switch data := q.Data.(type) {
	case domain.TextData:
		for i, opt := range data.Options {
			fmt.Fprintf(&b, "  %d) %s\n", i+1, opt)
		}
	case domain.BooleanData:
		b.WriteString("  t) True\n  f) False\n")
	}
	p.printf("%s", b.String())
}

func (p *terminalPresenter) ShowTick(remaining int) {
	if remaining%5 == 0 || remaining <= 3 {
		p.printf("  %ds\n", remaining)
	}
}

func (p *terminalPresenter) ShowFeedback(correct bool, q domain.Question, score domain.Score) {
	if correct {
		p.printf("Correct! (streak %d)\n", score.Streak)
		return
	}
	p.printf("Wrong. Answer: %s\n", app.CorrectAnswerText(q))
	if q.Explanation != "" {
		p.printf("  %s\n", q.Explanation)
	}
}

func (p *terminalPresenter) ShowTimeout(q domain.Question, _ domain.Score) {
	p.printf("Time's up! Answer: %s\n", app.CorrectAnswerText(q))
}

func (p *terminalPresenter) ShowPaused(paused bool, remaining int) {
	if paused {
		p.printf("Paused with %ds left (p to resume)\n", remaining)
	}
}

func (p *terminalPresenter) ShowSummary(summary domain.Summary) {
	var b strings.Builder
	fmt.Fprintf(&b, "\nFinished: %d/%d correct, best streak this run %d\n",
		summary.Score.Correct, summary.Score.Total, summary.Score.BestStreak)
	fmt.Fprintf(&b, "All-time best score %d, best streak %d\n", summary.Bests.BestScore, summary.Bests.BestStreak)
	if len(summary.Missed) > 0 {
		b.WriteString("Missed:\n")
		for _, m := range summary.Missed {
			fmt.Fprintf(&b, "  - %s\n    yours: %s, correct: %s\n", m.Prompt, m.YourAnswer, m.CorrectAnswer)
			if m.Explanation != "" {
				fmt.Fprintf(&b, "    %s\n", m.Explanation)
			}
		}
	}
	b.WriteString("r to play again, x to reset bests, q to quit\n")
	p.printf("%s", b.String())
}

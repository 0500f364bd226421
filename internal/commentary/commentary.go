// Package commentary asks an LLM to explain a finished backtest in plain language.
package commentary

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/llm"
	"go.uber.org/zap"
)

// Config holds narrator settings
type Config struct {
	MaxTokens     int
	RecentSignals int // signal rows quoted in the prompt
}

// Commentary is the LLM's reading of one run
type Commentary struct {
	RunID    string    `json:"run_id"`
	Provider string    `json:"provider"`
	Text     string    `json:"text"`
	Usage    llm.Usage `json:"usage"`
}

// Narrator turns reports into commentary
type Narrator struct {
	llm    llm.Provider
	cfg    Config
	logger *zap.Logger
}

// New creates a narrator. A nil logger is replaced by a no-op.
func New(provider llm.Provider, cfg Config, logger *zap.Logger) *Narrator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	if cfg.RecentSignals <= 0 {
		cfg.RecentSignals = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrator{llm: provider, cfg: cfg, logger: logger}
}

// Explain asks the provider to comment on a report
func (n *Narrator) Explain(ctx context.Context, report *backtest.Report) (*Commentary, error) {
	if report == nil || report.Result == nil {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("empty report"))
	}

	resp, err := n.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: BuildPrompt(report, n.cfg.RecentSignals)},
		},
		MaxTokens:   n.cfg.MaxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrCommentaryFailed, err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return nil, core.WrapError(core.ErrCommentaryFailed, fmt.Errorf("%s returned an empty reply", n.llm.Name()))
	}

	n.logger.Info("commentary generated",
		zap.String("run_id", report.RunID),
		zap.String("provider", n.llm.Name()),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)

	return &Commentary{
		RunID:    report.RunID,
		Provider: n.llm.Name(),
		Text:     text,
		Usage:    resp.Usage,
	}, nil
}

// BuildPrompt renders the facts of a run as markdown for the model
func BuildPrompt(report *backtest.Report, recentSignals int) string {
	res := report.Result
	p := res.Params
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Symbol: %s (source: %s)\n", res.Symbol, res.Source))
	sb.WriteString(fmt.Sprintf("Period: %s to %s, %d daily bars\n\n",
		res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"), len(res.Rows)))

	sb.WriteString("## Rules:\n")
	sb.WriteString(fmt.Sprintf("- %d-day SMA, %s signals\n", p.SMAPeriod, p.SignalConfig().Mode))
	if p.VolatilityGateEnabled {
		sb.WriteString(fmt.Sprintf("- Volatility gate: %s\n", p.SignalConfig().VolatilityGate))
	}
	if p.MinSignalSpacingDays > 1 {
		sb.WriteString(fmt.Sprintf("- Minimum %d bars between signals\n", p.MinSignalSpacingDays))
	}
	if p.MinMovePct > 0 {
		sb.WriteString(fmt.Sprintf("- Minimum price move %.2f%%\n", p.MinMovePct))
	}
	if p.DisableCashParking {
		sb.WriteString("- Idle capital earns nothing\n")
	} else {
		sb.WriteString(fmt.Sprintf("- Idle capital earns %.2f%% a year\n", p.AnnualCashYieldPct))
	}
	if p.AllowShort {
		sb.WriteString("- Sell signals open short positions\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Results:\n")
	sb.WriteString("| Metric | Strategy | Buy and hold |\n|---|---|---|\n")
	strategy := backtest.SummaryLines(res.Summary)
	benchmark := backtest.SummaryLines(res.Benchmark)
	for i := range strategy {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", strategy[i][0], strategy[i][1], benchmark[i][1]))
	}
	sb.WriteString(fmt.Sprintf("\nExcess return over buy and hold: %s\n", backtest.FormatPct(res.ExcessReturn)))
	sb.WriteString(fmt.Sprintf("Trades: %d (signals: %d buy, %d sell; %d candidates filtered)\n\n",
		res.Trades, res.Signals.Buys, res.Signals.Sells, res.Signals.Candidates-res.Signals.Buys-res.Signals.Sells))

	signals := res.SignalRows()
	if len(signals) > recentSignals {
		signals = signals[len(signals)-recentSignals:]
	}
	if len(signals) > 0 {
		sb.WriteString("## Recent Signals:\n")
		for _, row := range signals {
			sb.WriteString(fmt.Sprintf("- %s %s at %.2f (SMA %s)\n",
				row.Date.Format("2006-01-02"), strings.ToUpper(row.Signal.String()), row.Close, formatLevel(row.SMA)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Task:\n")
	sb.WriteString("Explain in plain language how the strategy behaved over this period and why it did better or worse than buy and hold.\n")

	return sb.String()
}

func formatLevel(f core.NullFloat) string {
	if !f.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f.Value)
}

const systemPrompt = `You are explaining the result of a historical backtest of a simple moving average trend-following rule to a non-specialist.

Describe what happened: when the rule was invested, when it sat in cash, and how that shaped return, drawdown and risk compared with buy and hold.
Keep it under 250 words. Use the numbers you are given and do not invent others.
This is an educational simulation without transaction costs or slippage. Do not give investment advice or predict future prices.`

// Package chat runs a single conversation turn through the full safety
// pipeline: service-wide budget gates, input validation, per-session rate
// limiting, history truncation, the model call, and usage accounting.
package chat

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/alerts"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/assistant"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/ledger"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/ratelimit"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/security"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Answerer is the model collaborator the orchestrator calls once per
// admitted turn. On failure an implementation may return a non-nil
// Answer next to the error, carrying whatever partial usage metadata
// the provider reported; a nil Answer on error means no usage.
type Answerer interface {
	Ask(ctx context.Context, prompt string) (*assistant.Answer, error)
}

// Orchestrator wires the safety services around the Answerer. Gates run
// cheapest-and-widest first: the service-wide caps protect the budget
// before any per-session or per-input work happens.
type Orchestrator struct {
	ledger    *ledger.Ledger
	limiter   *ratelimit.Limiter
	validator *security.Validator
	alerts    *alerts.Dispatcher
	answerer  Answerer
	limits    models.LimitsConfig
}

// New assembles the chat pipeline from its already-constructed services.
func New(
	l *ledger.Ledger,
	rl *ratelimit.Limiter,
	v *security.Validator,
	a *alerts.Dispatcher,
	answerer Answerer,
	limits models.LimitsConfig,
) *Orchestrator {
	return &Orchestrator{
		ledger:    l,
		limiter:   rl,
		validator: v,
		alerts:    a,
		answerer:  answerer,
		limits:    limits,
	}
}

// Handle runs one turn. It returns a ChatResponse on success, or an
// *models.AppError describing why the turn was refused or failed.
func (o *Orchestrator) Handle(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	sessionID := req.SessionID

	// Service-wide gates come before anything per-session: once the daily
	// cap or the monthly budget is gone, no input is worth inspecting.
	if ok, count := o.ledger.WithinDailyLimit(o.limits.DailyQueryLimit); !ok {
		fiberlog.Warnf("chat: daily query cap reached (%d queries)", count)
		go o.alerts.GlobalLimitHit(count, "daily")
		return nil, models.NewQueryCapError()
	}

	if ok, cost := o.ledger.WithinMonthlyBudget(o.limits.MonthlyBudgetUSD); !ok {
		fiberlog.Warnf("chat: monthly budget exhausted ($%.2f)", cost)
		go o.alerts.CostThreshold(cost, o.limits.MonthlyBudgetUSD, "monthly")
		return nil, models.NewBudgetExceededError()
	}

	result := o.validator.Validate(req.Message, sessionID)
	if !result.Valid {
		if result.Flagged {
			go o.alerts.SuspiciousActivity(sessionID, result.Reason)
		}
		return nil, models.NewValidationError(result.Reason)
	}
	question := result.Sanitized
	questionLength := utf8.RuneCountInString(question)

	decision := o.limiter.Check(sessionID)
	if !decision.Allowed {
		go o.alerts.RateLimitHit(sessionID, rateLimitCount(decision.LimitType, o.limits), decision.LimitType)
		return nil, models.NewRateLimitError(decision.Message, decision.LimitType)
	}

	// The slot is consumed up front so that a failed model call still
	// counts against the session; retry storms stay bounded.
	o.limiter.Record(sessionID)

	history := truncateHistory(req.History, o.limits.ConversationHistoryLength)
	prompt := composePrompt(history, question)

	start := time.Now()
	answer, err := o.answerer.Ask(ctx, prompt)
	latency := time.Since(start)

	if err != nil {
		errMsg := err.Error()
		// Failed calls may still have burned tokens; when the provider
		// reported partial usage the ledger must see it. Calls that died
		// before reaching the provider have no Answer at all.
		var promptTokens, responseTokens, totalTokens int
		if answer != nil {
			promptTokens = answer.PromptTokens
			responseTokens = answer.ResponseTokens
			totalTokens = answer.TotalTokens
		}
		o.ledger.RecordUsage(sessionID, questionLength,
			promptTokens, responseTokens, totalTokens,
			latency, false, errMsg)

		kind := assistant.ClassifyUpstreamError(errMsg)
		apology := assistant.Apology(kind)
		if kind == assistant.ErrorKindTimeout {
			return nil, &models.AppError{
				Type:      models.ErrorTypeTimeout,
				Message:   apology,
				Retryable: true,
				Cause:     err,
			}
		}
		return nil, models.NewProviderError(apology, err)
	}

	o.ledger.RecordUsage(sessionID, questionLength,
		answer.PromptTokens, answer.ResponseTokens, answer.TotalTokens,
		latency, true, "")

	o.checkCostThresholds()

	return &models.ChatResponse{
		SessionID: sessionID,
		Answer:    answer.Text,
		Warning:   decision.Message,
		Remaining: decision.Remaining,
	}, nil
}

// checkCostThresholds fires a cost alert once today's spend crosses the
// warning line. The check is post-hoc and stateless, so the alert repeats
// on every subsequent turn that day; operators mute the topic rather than
// the service suppressing it.
func (o *Orchestrator) checkCostThresholds() {
	daily := o.ledger.DailyStats(time.Time{})
	if daily.TotalCost >= o.limits.DailyBudgetWarningUSD {
		go o.alerts.CostThreshold(daily.TotalCost, o.limits.DailyBudgetWarningUSD, "daily")
	}
}

func rateLimitCount(limitType models.LimitType, limits models.LimitsConfig) int {
	if limitType == models.LimitTypeDaily {
		return limits.RateLimitPerDay
	}
	return limits.RateLimitPerHour
}

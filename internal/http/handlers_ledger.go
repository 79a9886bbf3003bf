package http

import (
	"log/slog"
	"net/http"

	"pesso/internal/core"
)

type envelopesBody struct {
	Envelopes []core.Envelope `json:"envelopes"`
	Total     core.Money      `json:"total"`
}

func (s *Server) handleListEnvelopes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelopesBody{
		Envelopes: s.ledger.Envelopes(),
		Total:     s.ledger.TotalBalance(),
	})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"goals": s.ledger.Goals(),
	})
}

type depositRequest struct {
	Amount string `json:"amount"`
	Goal   string `json:"goal,omitempty"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var goal *core.Money
	if req.Goal != "" {
		g, err := parseAmountField(req.Goal)
		if err != nil {
			writeError(w, r, core.ErrInvalidGoal)
			return
		}
		goal = &g
	}

	env, err := s.ledger.Deposit(r.Context(), r.PathValue("id"), amount, goal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary()
	slog.InfoContext(r.Context(), "Deposit accepted",
		"envelope_id", env.ID,
		"amount_cents", amount.Cents)
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":     "deposit",
		"envelope": env,
	})
}

type withdrawRequest struct {
	Amount    string `json:"amount"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	var env core.Envelope
	if req.Confirmed {
		env, err = s.ledger.WithdrawConfirmed(r.Context(), id, amount)
	} else {
		env, err = s.ledger.Withdraw(r.Context(), id, amount)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary()
	slog.InfoContext(r.Context(), "Withdrawal accepted",
		"envelope_id", env.ID,
		"amount_cents", amount.Cents,
		"confirmed", req.Confirmed)
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":     "withdraw",
		"envelope": env,
	})
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	from, to, err := s.ledger.Transfer(r.Context(), req.From, req.To, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary()
	slog.InfoContext(r.Context(), "Transfer accepted",
		"from", from.ID,
		"to", to.ID,
		"amount_cents", amount.Cents)
	writeJSON(w, http.StatusOK, map[string]any{
		"kind": "transfer",
		"from": from,
		"to":   to,
	})
}

type goalAddRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleAddToGoal(w http.ResponseWriter, r *http.Request) {
	var req goalAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := s.ledger.AddToGoal(r.Context(), r.PathValue("id"), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary()
	slog.InfoContext(r.Context(), "Goal contribution accepted",
		"goal_id", goal.ID,
		"amount_cents", amount.Cents)
	writeJSON(w, http.StatusOK, map[string]any{
		"kind": "goal",
		"goal": goal,
	})
}

type summaryBody struct {
	Total          core.Money      `json:"total"`
	Envelopes      []core.Envelope `json:"envelopes"`
	Goals          []core.Goal     `json:"goals"`
	ChallengeStats any             `json:"challengeStats"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if body, ok := s.summaryCache.Get(summaryCacheKey); ok {
		writeJSON(w, http.StatusOK, body)
		return
	}

	body := summaryBody{
		Total:          s.ledger.TotalBalance(),
		Envelopes:      s.ledger.Envelopes(),
		Goals:          s.ledger.Goals(),
		ChallengeStats: s.challenges.Stats(),
	}
	s.summaryCache.Set(summaryCacheKey, body)
	writeJSON(w, http.StatusOK, body)
}

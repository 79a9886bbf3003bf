package http

import (
	"log/slog"
	"net/http"

	"pesso/internal/challenge"
	"pesso/internal/core"
)

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"challenges": s.challenges.Challenges(),
		"stats":      s.challenges.Stats(),
	})
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.challenges.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type createChallengeRequest struct {
	Type      string `json:"type"`
	Duration  int    `json:"duration,omitempty"`
	MinAmount string `json:"minAmount,omitempty"`
	MaxAmount string `json:"maxAmount,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Category  string `json:"category,omitempty"`
	Spins     int    `json:"spins,omitempty"`
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	cfg := challenge.Config{
		Duration:  req.Duration,
		Frequency: req.Frequency,
		Category:  req.Category,
		Spins:     req.Spins,
	}

	var err error
	if req.MinAmount != "" {
		if cfg.MinAmount, err = parseAmountField(req.MinAmount); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.MaxAmount != "" {
		if cfg.MaxAmount, err = parseAmountField(req.MaxAmount); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Amount != "" {
		if cfg.Amount, err = parseAmountField(req.Amount); err != nil {
			writeError(w, r, err)
			return
		}
	}

	c, err := s.challenges.Create(r.Context(), core.ChallengeType(req.Type), cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary()
	slog.InfoContext(r.Context(), "Challenge created",
		"challenge_id", c.ID,
		"type", c.Type,
		"target_cents", c.Target.Cents)
	writeJSON(w, http.StatusCreated, c)
}

type contributeRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.challenges.Contribute(r.Context(), r.PathValue("id"), amount, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary()
	slog.InfoContext(r.Context(), "Challenge contribution accepted",
		"challenge_id", c.ID,
		"amount_cents", amount.Cents,
		"status", c.Status)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleSpin(w http.ResponseWriter, r *http.Request) {
	c, drawn, err := s.challenges.Spin(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary()
	slog.InfoContext(r.Context(), "Roulette spin accepted",
		"challenge_id", c.ID,
		"drawn_cents", drawn.Cents,
		"remaining_spins", c.RemainingSpins)
	writeJSON(w, http.StatusOK, map[string]any{
		"challenge": c,
		"drawn":     drawn,
	})
}

func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.challenges.CompleteManually(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary()
	slog.InfoContext(r.Context(), "Challenge completed manually", "challenge_id", c.ID)
	writeJSON(w, http.StatusOK, c)
}

package http

import (
	"bytes"
	"net/http"
	"strconv"

	"wisma/internal/core"
	"wisma/internal/log"
	"wisma/internal/report"
	"wisma/internal/services"
)

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := s.flows.ListFlows(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, flows)
}

// handleRecordFlow answers 202 when the delta was queued for retry rather
// than applied.
func (s *Server) handleRecordFlow(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpFlow, err)
		return
	}
	date, err := dateOrToday(req.Date, s.flows.Today())
	if err != nil {
		s.writeError(w, r, log.OpFlow, err)
		return
	}
	flow, err := s.flows.RecordFlow(r.Context(), date, core.Money(req.Income), core.Money(req.Expense))
	if err != nil {
		s.writeError(w, r, log.OpFlow, err)
		return
	}
	status := http.StatusCreated
	if flow.PendingSync {
		status = http.StatusAccepted
	}
	writeJSON(w, status, flow)
}

func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	period, offset, err := parseRollupParams(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	rollup, err := s.flows.Rollup(r.Context(), period, offset)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, rollup)
}

func (s *Server) handleExportRollup(w http.ResponseWriter, r *http.Request) {
	period, offset, err := parseRollupParams(r)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	rollup, err := s.flows.Rollup(r.Context(), period, offset)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	expenses, err := s.flows.ExpensesInRange(r.Context(), rollup.Start, rollup.End)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteRollup(&buf, rollup, expenses); err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentReport).InfoContext(r.Context(), "Cash-flow report exported",
		log.FieldPeriod, string(period),
		log.FieldOffset, offset,
		"bytes", buf.Len(),
	)
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(rollup)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	sum, err := s.flows.Wallet(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleFlowStream(w http.ResponseWriter, r *http.Request) {
	streamSnapshots(s, w, r, func(flows []core.DateFlow) any { return flows }, s.flows.WatchFlows)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.flows.ListExpenses(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	date, err := dateOrToday(req.Date, s.flows.Today())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	e, err := s.flows.CreateExpense(r.Context(), services.NewExpense{
		Title:    sanitizeInput(req.Title),
		Amount:   core.Money(req.Amount),
		Date:     date,
		Category: core.Category(sanitizeInput(req.Category)),
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+e.ID).
		JSON(e).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.flows.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	totals, err := s.flows.ExpensesByCategory(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleExpenseStream(w http.ResponseWriter, r *http.Request) {
	streamSnapshots(s, w, r, func(expenses []core.Expense) any { return expenses }, s.flows.WatchExpenses)
}

package http

import (
	"net/http"

	"wisma/internal/core"
	"wisma/internal/log"
	"wisma/internal/services"
)

func views(stays []core.Stay) []services.StayView {
	out := make([]services.StayView, 0, len(stays))
	for _, st := range stays {
		out = append(out, services.View(st))
	}
	return out
}

func (s *Server) handleListStays(w http.ResponseWriter, r *http.Request) {
	stays, err := s.stays.List(r.Context(), parseBoolQuery(r, "active"))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, views(stays))
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCheckIn, err)
		return
	}
	in, err := core.ParseDate(req.CheckInDate)
	if err != nil {
		s.writeError(w, r, log.OpCheckIn, err)
		return
	}
	out, err := core.ParseDate(req.CheckOutDate)
	if err != nil {
		s.writeError(w, r, log.OpCheckIn, err)
		return
	}

	stay, err := s.stays.CheckIn(r.Context(), core.CheckInRequest{
		RoomNumber:   req.RoomNumber,
		GuestName:    sanitizeInput(req.GuestName),
		CheckInDate:  in,
		CheckOutDate: out,
	})
	if err != nil {
		s.writeError(w, r, log.OpCheckIn, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/stays/"+stay.ID).
		JSON(services.View(stay)).
		Write(w)
}

func (s *Server) handleGetStay(w http.ResponseWriter, r *http.Request) {
	stay, err := s.stays.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, services.View(stay))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	through, err := core.ParseDate(r.URL.Query().Get("paidThrough"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	q, err := s.stays.Quote(r.Context(), r.PathValue("id"), through)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpPayment, err)
		return
	}
	through, err := core.ParseDate(req.PaidThrough)
	if err != nil {
		s.writeError(w, r, log.OpPayment, err)
		return
	}
	var amount core.Money
	if req.Amount != nil {
		amount = core.Money(*req.Amount)
		if amount <= 0 {
			s.writeError(w, r, log.OpPayment, &core.ValidationError{Err: core.ErrInvalidPaymentAmount, Msg: "Please enter a valid amount"})
			return
		}
	}

	res, err := s.stays.RecordPayment(r.Context(), r.PathValue("id"), through, amount)
	if err != nil {
		s.writeError(w, r, log.OpPayment, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Stay   services.StayView `json:"stay"`
		Days   int               `json:"days"`
		Amount core.Money        `json:"amount"`
		Flow   core.DateFlow     `json:"flow"`
	}{services.View(res.Stay), res.Days, res.Amount, res.Flow})
}

func (s *Server) handleExtendStay(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpExtend, err)
		return
	}
	out, err := core.ParseDate(req.CheckOutDate)
	if err != nil {
		s.writeError(w, r, log.OpExtend, err)
		return
	}
	stay, err := s.stays.ExtendStay(r.Context(), r.PathValue("id"), out)
	if err != nil {
		s.writeError(w, r, log.OpExtend, err)
		return
	}
	writeJSON(w, http.StatusOK, services.View(stay))
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	stay, err := s.stays.CheckOut(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpCheckOut, err)
		return
	}
	writeJSON(w, http.StatusOK, services.View(stay))
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.stays.Rooms(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	o, err := s.stays.Occupancy(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleStayStream(w http.ResponseWriter, r *http.Request) {
	streamSnapshots(s, w, r, func(stays []core.Stay) any { return views(stays) }, s.stays.Watch)
}

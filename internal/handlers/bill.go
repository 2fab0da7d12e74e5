package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/openpolicy/civicdata/internal/service"
	"github.com/openpolicy/civicdata/internal/store/model"
)

func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	filter := service.BillFilter{
		JurisdictionID: r.URL.Query().Get("jurisdiction_id"),
		Status:         r.URL.Query().Get("status"),
		Search:         r.URL.Query().Get("search"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		filter.Offset, _ = strconv.Atoi(offset)
	}

	bills, err := h.bills.ListBills(r.Context(), filter)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	reply := BillListReply{Bills: make([]BillReply, 0, len(bills))}
	for _, bill := range bills {
		reply.Bills = append(reply.Bills, billReply(bill))
	}
	_ = render.Render(w, r, reply)
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bill_id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Error: "invalid bill id"})
		return
	}

	bill, err := h.bills.GetBill(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, billReply(*bill))
}

func (h *Handler) ListJurisdictions(w http.ResponseWriter, r *http.Request) {
	filter := service.JurisdictionFilter{
		Type:     r.URL.Query().Get("type"),
		Province: r.URL.Query().Get("province"),
	}

	jurisdictions, err := h.bills.ListJurisdictions(r.Context(), filter)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	reply := JurisdictionListReply{Jurisdictions: make([]JurisdictionReply, 0, len(jurisdictions))}
	for _, jurisdiction := range jurisdictions {
		reply.Jurisdictions = append(reply.Jurisdictions, jurisdictionReply(jurisdiction))
	}
	_ = render.Render(w, r, reply)
}

func (h *Handler) GetJurisdiction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jurisdiction_id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Error: "invalid jurisdiction id"})
		return
	}

	jurisdiction, err := h.bills.GetJurisdiction(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, jurisdictionReply(*jurisdiction))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bills.GetStats(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, StatsReply{Stats: stats})
}

func (h *Handler) ValidateFederalBills(w http.ResponseWriter, r *http.Request) {
	report, err := h.validation.ValidateFederalBills(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	reply := make([]render.Renderer, 0, len(report.Results))
	for _, result := range report.Results {
		reply = append(reply, ValidationResultReply{ValidationResult: result})
	}
	_ = render.RenderList(w, r, reply)
}

func billReply(bill model.Bill) BillReply {
	return BillReply{
		ID:             bill.ID.String(),
		JurisdictionID: bill.JurisdictionID.String(),
		Identifier:     bill.Identifier,
		Title:          bill.Title,
		Summary:        bill.Summary,
		Status:         string(bill.Status),
		IntroducedDate: bill.IntroducedDate,
		SourceURL:      bill.SourceURL,
	}
}

func jurisdictionReply(jurisdiction model.Jurisdiction) JurisdictionReply {
	return JurisdictionReply{
		ID:       jurisdiction.ID.String(),
		Name:     jurisdiction.Name,
		Type:     string(jurisdiction.Type),
		Province: jurisdiction.Province,
		URL:      jurisdiction.URL,
	}
}

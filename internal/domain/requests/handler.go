package requests

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"participation-service/internal/lookup"
)

// RegisterRoutes monta la API pública. La identidad del usuario viene en el
// path (la valida el gateway).
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/users/{userID}", func(ur chi.Router) {
		ur.Route("/requests", func(rr chi.Router) {
			rr.Post("/", submitHandler(svc))
			rr.Get("/", listMineHandler(svc))
			rr.Get("/{requestID}", getMineHandler(svc))
			rr.Patch("/{requestID}/cancel", cancelHandler(svc))
		})

		ur.Route("/events/{eventID}/requests", func(er chi.Router) {
			er.Get("/", listEventRequestsHandler(svc))
			er.Patch("/", moderateHandler(svc))
		})
	})
}

// RegisterInternalRoutes monta las consultas que usan otros servicios.
// El router las protege con la API key de servicio.
func RegisterInternalRoutes(r chi.Router, svc *Service) {
	r.Get("/events/confirmed-counts", confirmedCountsHandler(svc))
	r.Get("/events/{eventID}/confirmed-count", confirmedCountHandler(svc))
	r.Get("/participation", participationHandler(svc))
}

type requestResponse struct {
	ID        string    `json:"id"`
	Requester string    `json:"requester"`
	Event     string    `json:"event"`
	Status    Status    `json:"status"`
	Created   time.Time `json:"created"`
}

type eventInfoResponse struct {
	ID                string `json:"id"`
	Unavailable       bool   `json:"unavailable,omitempty"`
	InitiatorID       string `json:"initiatorId,omitempty"`
	State             string `json:"state,omitempty"`
	ParticipantLimit  *int   `json:"participantLimit,omitempty"`
	RequestModeration *bool  `json:"requestModeration,omitempty"`
}

type requesterInfoResponse struct {
	ID          string `json:"id"`
	Unavailable bool   `json:"unavailable,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
}

type requesterEntryResponse struct {
	requestResponse
	EventInfo eventInfoResponse `json:"eventInfo"`
}

type eventEntryResponse struct {
	requestResponse
	RequesterInfo requesterInfoResponse `json:"requesterInfo"`
}

type moderateRequest struct {
	RequestIDs []string `json:"requestIds"`
	Status     string   `json:"status"`
}

type moderationResponse struct {
	ConfirmedRequests []requestResponse `json:"confirmedRequests"`
	RejectedRequests  []requestResponse `json:"rejectedRequests"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// submitHandler godoc
// @Summary     Crear solicitud de participación
// @Tags        requests
// @Produce     json
// @Param       userID  path  string true "Solicitante"
// @Param       eventId query string true "Evento"
// @Success     201 {object} requestResponse
// @Failure     400,404,409,503 {object} errorResponse
// @Router      /users/{userID}/requests [post]
func submitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		eventID := strings.TrimSpace(r.URL.Query().Get("eventId"))
		if eventID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "eventId required"})
			return
		}

		req, err := svc.Submit(r.Context(), userID, eventID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRequestResponse(req))
	}
}

// listMineHandler godoc
// @Summary     Solicitudes del usuario
// @Tags        requests
// @Produce     json
// @Param       userID path string true "Solicitante"
// @Success     200 {array} requesterEntryResponse
// @Router      /users/{userID}/requests [get]
func listMineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListForRequesterWithEvents(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]requesterEntryResponse, 0, len(items))
		for _, it := range items {
			out = append(out, requesterEntryResponse{
				requestResponse: toRequestResponse(it.Request),
				EventInfo:       toEventInfo(it.Event),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getMineHandler godoc
// @Summary     Detalle de una solicitud propia
// @Tags        requests
// @Produce     json
// @Param       userID    path string true "Solicitante"
// @Param       requestID path string true "Solicitud"
// @Success     200 {object} requesterEntryResponse
// @Failure     404 {object} errorResponse
// @Router      /users/{userID}/requests/{requestID} [get]
func getMineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, err := svc.GetForRequester(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "requestID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, requesterEntryResponse{
			requestResponse: toRequestResponse(it.Request),
			EventInfo:       toEventInfo(it.Event),
		})
	}
}

// cancelHandler godoc
// @Summary     Cancelar solicitud propia
// @Tags        requests
// @Produce     json
// @Param       userID    path string true "Solicitante"
// @Param       requestID path string true "Solicitud"
// @Success     200 {object} requestResponse
// @Failure     404,409 {object} errorResponse
// @Router      /users/{userID}/requests/{requestID}/cancel [patch]
func cancelHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := svc.Cancel(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "requestID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(req))
	}
}

// listEventRequestsHandler godoc
// @Summary     Solicitudes de un evento (organizador)
// @Tags        moderation
// @Produce     json
// @Param       userID  path string true "Organizador"
// @Param       eventID path string true "Evento"
// @Success     200 {array} eventEntryResponse
// @Failure     404,409,503 {object} errorResponse
// @Router      /users/{userID}/events/{eventID}/requests [get]
func listEventRequestsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListForEventWithRequesters(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "eventID"))
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]eventEntryResponse, 0, len(items))
		for _, it := range items {
			out = append(out, eventEntryResponse{
				requestResponse: toRequestResponse(it.Request),
				RequesterInfo:   toRequesterInfo(it.Requester),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// moderateHandler godoc
// @Summary     Confirmar o rechazar solicitudes
// @Tags        moderation
// @Accept      json
// @Produce     json
// @Param       userID  path string          true "Organizador"
// @Param       eventID path string          true "Evento"
// @Param       body    body moderateRequest true "Lote"
// @Success     200 {object} moderationResponse
// @Failure     400,404,409,503 {object} errorResponse
// @Router      /users/{userID}/events/{eventID}/requests [patch]
func moderateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body moderateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
			return
		}

		// un status desconocido lo rechaza Moderate como conflicto
		target, _ := ParseStatus(body.Status)
		res, err := svc.Moderate(r.Context(),
			chi.URLParam(r, "userID"),
			chi.URLParam(r, "eventID"),
			body.RequestIDs,
			target,
		)
		if err != nil {
			writeError(w, err)
			return
		}

		out := moderationResponse{
			ConfirmedRequests: make([]requestResponse, 0, len(res.Confirmed)),
			RejectedRequests:  make([]requestResponse, 0, len(res.Rejected)),
		}
		for _, c := range res.Confirmed {
			out.ConfirmedRequests = append(out.ConfirmedRequests, toRequestResponse(c))
		}
		for _, rj := range res.Rejected {
			out.RejectedRequests = append(out.RejectedRequests, toRequestResponse(rj))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// confirmedCountHandler godoc
// @Summary     Confirmadas de un evento
// @Tags        internal
// @Produce     json
// @Param       eventID path string true "Evento"
// @Success     200 {object} map[string]int
// @Router      /internal/events/{eventID}/confirmed-count [get]
func confirmedCountHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")
		n, err := svc.ConfirmedCount(r.Context(), eventID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"eventId": eventID, "confirmed": n})
	}
}

// confirmedCountsHandler godoc
// @Summary     Confirmadas por evento (batch). Eventos sin confirmadas se omiten.
// @Tags        internal
// @Produce     json
// @Param       ids query string true "ids separados por coma"
// @Success     200 {object} map[string]int
// @Router      /internal/events/confirmed-counts [get]
func confirmedCountsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.ConfirmedCountBatch(r.Context(), splitCSV(r.URL.Query().Get("ids")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

// participationHandler godoc
// @Summary     Estado de la participación de un usuario en un evento
// @Tags        internal
// @Produce     json
// @Param       userId  query string true "Usuario"
// @Param       eventId query string true "Evento"
// @Success     200 {object} map[string]string
// @Failure     404 {object} errorResponse
// @Router      /internal/participation [get]
func participationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		st, err := svc.CheckParticipation(r.Context(), q.Get("userId"), q.Get("eventId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": st})
	}
}

func toRequestResponse(r Request) requestResponse {
	return requestResponse{
		ID:        r.ID,
		Requester: r.RequesterID,
		Event:     r.EventID,
		Status:    r.Status,
		Created:   r.CreatedAt,
	}
}

func toEventInfo(e lookup.Event) eventInfoResponse {
	f, ok := e.Facts()
	if !ok {
		return eventInfoResponse{ID: e.ID, Unavailable: true}
	}
	return eventInfoResponse{
		ID:                f.ID,
		InitiatorID:       f.InitiatorID,
		State:             string(f.State),
		ParticipantLimit:  &f.ParticipantLimit,
		RequestModeration: &f.RequestModeration,
	}
}

func toRequesterInfo(u lookup.User) requesterInfoResponse {
	f, ok := u.Facts()
	if !ok {
		return requesterInfoResponse{ID: u.ID, Unavailable: true}
	}
	return requesterInfoResponse{ID: f.ID, Name: f.Name, Email: f.Email}
}

func splitCSV(raw string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// writeError traduce errores del dominio a status HTTP.
func writeError(w http.ResponseWriter, err error) {
	body := errorResponse{Error: err.Error(), Reason: Reason(err)}

	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, body)
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, ErrServiceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/actor"
	"github.com/hovportalen/farrier-booking/internal/admission"
	"github.com/hovportalen/farrier-booking/internal/apperr"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
)

// Availability

func areaAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, ok := dateParam(w, r, svc, "date")
		if !ok {
			return
		}

		fps, err := svc.AreaAvailability(r.Context(), day)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toFootprintResponses(fps))
	}
}

func farriersInAreaHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, ok := dateParam(w, r, svc, "date")
		if !ok {
			return
		}

		fps, err := svc.FarriersInArea(r.Context(), r.URL.Query().Get("area"), day)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toFootprintResponses(fps))
	}
}

func farrierAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}
		day, ok := dateParam(w, r, svc, "date")
		if !ok {
			return
		}

		avail, err := svc.Available(r.Context(), farrierID, day)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(avail))
	}
}

func farrierWeekHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}
		from, ok := dateParam(w, r, svc, "from")
		if !ok {
			return
		}

		days, err := svc.Week(r.Context(), farrierID, from)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]DaySummaryResponse, 0, len(days))
		for _, d := range days {
			resp = append(resp, DaySummaryResponse{
				Date:           d.Date.Format(dateLayout),
				Weekday:        d.Weekday,
				BookedAreas:    nonNil(d.BookedAreas),
				AvailableAreas: nonNil(d.AvailableAreas),
				BookingsCount:  d.BookingsCount,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func slotsHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}
		day, ok := dateParam(w, r, svc, "date")
		if !ok {
			return
		}

		q := r.URL.Query()
		duration, err := strconv.Atoi(q.Get("duration"))
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "duration must be a number of minutes")
			return
		}
		granularity := 0
		if g := q.Get("granularity"); g != "" {
			if granularity, err = strconv.Atoi(g); err != nil {
				writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "granularity must be a number of minutes")
				return
			}
		}

		slots, err := svc.Slots(r.Context(), farrierID, day, duration, granularity)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := SlotsResponse{
			FarrierID:       farrierID,
			Date:            day.Format(dateLayout),
			DurationMinutes: duration,
			Slots:           make([]SlotResponse, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, SlotResponse{Start: s.Start, End: s.End})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Schedule

func listWindowsHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}

		windows, err := svc.ListWindows(r.Context(), farrierID)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, toWindowResponse(win))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addWindowHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}

		var req NewWindowRequest
		if !decodeBody(w, r, &req) {
			return
		}

		start, err := farrier.ParseClock(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "start: "+err.Error())
			return
		}
		end, err := farrier.ParseClock(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "end: "+err.Error())
			return
		}

		who, _ := GetActor(r.Context())
		win, err := svc.AddWindow(r.Context(), who, farrierID, farrier.NewWindow{
			DayOfWeek:   req.DayOfWeek,
			StartMinute: start,
			EndMinute:   end,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWindowResponse(*win))
	}
}

func deleteWindowHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}
		windowID, ok := uuidParam(w, r, "windowID", "window id")
		if !ok {
			return
		}

		who, _ := GetActor(r.Context())
		if err := svc.DeleteWindow(r.Context(), who, farrierID, windowID); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listAreasHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}

		areas, err := svc.ListAreas(r.Context(), farrierID)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]AreaResponse, 0, len(areas))
		for _, a := range areas {
			resp = append(resp, toAreaResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func addAreaHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}

		var req NewAreaRequest
		if !decodeBody(w, r, &req) {
			return
		}

		who, _ := GetActor(r.Context())
		area, err := svc.AddArea(r.Context(), who, farrierID, farrier.NewArea{
			City:             req.City,
			PostalCodePrefix: req.PostalCodePrefix,
			Latitude:         req.Latitude,
			Longitude:        req.Longitude,
			TravelFee:        req.TravelFee,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAreaResponse(*area))
	}
}

func deleteAreaHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}
		areaID, ok := uuidParam(w, r, "areaID", "area id")
		if !ok {
			return
		}

		who, _ := GetActor(r.Context())
		if err := svc.DeleteArea(r.Context(), who, farrierID, areaID); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func travelRadiusHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farrierID, ok := uuidParam(w, r, "id", "farrier id")
		if !ok {
			return
		}

		var req TravelRadiusRequest
		if !decodeBody(w, r, &req) {
			return
		}

		who, _ := GetActor(r.Context())
		f, err := svc.SetTravelRadius(r.Context(), who, farrierID, req.TravelRadiusKm)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, FarrierResponse{
			ID:             f.ID,
			BusinessName:   f.BusinessName,
			TravelRadiusKm: f.TravelRadiusKm,
			IsAvailable:    f.IsAvailable,
		})
	}
}

// Bookings

// admitBookingHandler accepts any whole-minute start whose interval fits in
// the farrier's free time. Starts need not sit on the slots grid.
func admitBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdmitBookingRequest
		if !decodeBody(w, r, &req) {
			return
		}

		who, _ := GetActor(r.Context())

		// owners book for themselves unless owner_id says otherwise
		ownerRaw := req.OwnerID
		if ownerRaw == "" && who.Role == actor.RoleOwner {
			ownerRaw = who.ID.String()
		}

		farrierID, err := uuid.Parse(req.FarrierID)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "farrier_id must be a valid UUID")
			return
		}
		horseID, err := uuid.Parse(req.HorseID)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "horse_id must be a valid UUID")
			return
		}
		ownerID, err := uuid.Parse(ownerRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "owner_id must be a valid UUID")
			return
		}
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "start must be an RFC 3339 timestamp")
			return
		}

		b, err := svc.Admit(r.Context(), who, admission.AdmitRequest{
			FarrierID:       farrierID,
			HorseID:         horseID,
			OwnerID:         ownerID,
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			Service:         req.Service,
			City:            req.City,
			Address:         req.Address,
			Notes:           req.Notes,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func transitionBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id", "booking id")
		if !ok {
			return
		}

		var req TransitionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		who, _ := GetActor(r.Context())
		b, err := svc.Transition(r.Context(), id, booking.Action(req.Action), who, req.Reason)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func getBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id", "booking id")
		if !ok {
			return
		}

		who, _ := GetActor(r.Context())
		b, err := svc.Get(r.Context(), id, who)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func listBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var f booking.Filter

		if v := q.Get("farrier_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "farrier_id must be a valid UUID")
				return
			}
			f.FarrierID = &id
		}
		if v := q.Get("owner_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "owner_id must be a valid UUID")
				return
			}
			f.OwnerID = &id
		}
		if v := q.Get("status"); v != "" {
			s := booking.Status(v)
			f.Status = &s
		}
		f.Limit, _ = strconv.Atoi(q.Get("limit"))
		f.Offset, _ = strconv.Atoi(q.Get("offset"))

		who, _ := GetActor(r.Context())
		list, err := svc.List(r.Context(), f, who)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := ListBookingsResponse{
			Bookings: make([]BookingResponse, 0, len(list)),
			Limit:    f.Limit,
			Offset:   f.Offset,
		}
		for i := range list {
			resp.Bookings = append(resp.Bookings, toBookingResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Helpers

func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(apperr.KindValidation), label+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func dateParam(w http.ResponseWriter, r *http.Request, svc AvailabilityService, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeError(w, http.StatusBadRequest, string(apperr.KindValidation), name+" is required (YYYY-MM-DD)")
		return time.Time{}, false
	}
	day, err := svc.ParseDate(raw)
	if err != nil {
		handleError(w, r, err)
		return time.Time{}, false
	}
	return day, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, string(apperr.KindValidation), "could not parse JSON body")
		return false
	}
	return true
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindSlotUnavailable, apperr.KindConflict, apperr.KindState:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Printf("internal error request_id=%s path=%s: %v", GetRequestID(r.Context()), r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, string(kind), "internal error")
		return
	}
	writeError(w, statusFor(kind), string(kind), apperr.Message(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:     kind,
		Details:   details,
		Retryable: apperr.Retryable(apperr.Kind(kind)),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package tools

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ezekaj/elo-deu/pkg/logging"
)

// Handler exposes the registry operations as JSON POST endpoints for the
// voice layer.
type Handler struct {
	registry *Registry
	logger   *logging.Logger
}

// NewHandler creates the HTTP handler over the registry.
func NewHandler(registry *Registry, logger *logging.Logger) *Handler {
	if registry == nil {
		panic("tools: registry required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

// Routes mounts one POST route per operation.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/check_availability", handle(h, h.registry.CheckAvailability))
	r.Post("/book_appointment", handle(h, h.registry.BookAppointment))
	r.Post("/cancel_appointment", handle(h, h.registry.CancelAppointment))
	r.Post("/reschedule_appointment", handle(h, h.registry.RescheduleAppointment))
	r.Post("/find_next_available", handle(h, h.registry.FindNextAvailable))
	r.Post("/search_patient_history", handle(h, h.registry.SearchPatientHistory))
	r.Post("/clinic_info", handle(h, h.registry.ClinicInfo))
	r.Post("/answer_faq", handle(h, h.registry.AnswerFAQ))
	r.Post("/collect_intake", handle(h, h.registry.CollectIntake))
	r.Post("/day_plan", handle(h, h.registry.DayPlan))
	r.Post("/week_overview", handle(h, h.registry.WeekOverview))
	r.Post("/start_call", handle(h, h.registry.StartCall))
	r.Post("/call_status", handle(h, h.registry.CallStatus))
	r.Post("/call_summary", handle(h, h.registry.CallSummary))
	r.Post("/end_call", handle(h, h.registry.EndCall))
	r.Post("/add_note", handle(h, h.registry.AddNote))
	r.Post("/parse_request", handle(h, h.registry.ParseRequest))
	r.Post("/medical_follow_up", handle(h, h.registry.MedicalFollowUp))
	r.Get("/list_services", func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, h.registry.ListServices(r.Context()))
	})
	return r
}

// handle decodes the JSON body into the operation's argument struct and
// writes the Result back.
func handle[A any](h *Handler, op func(ctx context.Context, args A) Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args A
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
				h.logger.Warn("bad tool request", "path", r.URL.Path, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(Result{
					Message: "Die Anfrage war nicht lesbar.",
				})
				return
			}
		}
		h.respond(w, op(r.Context(), args))
	}
}

func (h *Handler) respond(w http.ResponseWriter, res Result) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.logger.Error("response encoding failed", "error", err)
	}
}

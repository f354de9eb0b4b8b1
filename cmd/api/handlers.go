package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/mcclellann/creditos/pkg/engine"
	"github.com/mcclellann/creditos/pkg/models"
	"github.com/mcclellann/creditos/pkg/sheet"
	"github.com/mcclellann/creditos/pkg/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Server holds the session's credit collection and serves the operator API.
type Server struct {
	storage store.Storage
	logger  *log.Logger
	now     func() time.Time
}

func NewServer(s store.Storage) *Server {
	return &Server{
		storage: s,
		logger:  log.Default(),
		now:     time.Now,
	}
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.HandleFunc("/credits", s.listCreditsHandler).Methods("GET")
	router.HandleFunc("/credits", s.createCreditHandler).Methods("POST")
	router.HandleFunc("/credits/{id}", s.getCreditHandler).Methods("GET")
	router.HandleFunc("/credits/{id}", s.updateCreditHandler).Methods("PUT")
	router.HandleFunc("/credits/{id}/payments", s.recordPaymentHandler).Methods("POST")
	router.HandleFunc("/clients/{name}/payments", s.recordClientPaymentHandler).Methods("POST")
	router.HandleFunc("/import", s.importHandler).Methods("POST")
	router.HandleFunc("/export", s.exportHandler).Methods("GET")
	return router
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve models.ValidationError
	switch {
	case errors.As(err, &ve):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.logger.Printf("internal error: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// refresh re-derives every credit's status against the current date so
// reads never serve classifications from a previous day.
func (s *Server) refresh() {
	today := s.now()
	s.storage.RefreshAll(func(c *models.Credit) {
		engine.Recompute(c, today)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type creditRequest struct {
	Client      string          `json:"client"`
	Principal   decimal.Decimal `json:"principal"`
	Frequency   string          `json:"frequency"`
	OriginDate  string          `json:"origin_date"`
	NextDueDate string          `json:"next_due_date"`
	PaidToDate  decimal.Decimal `json:"paid_to_date"`
}

func (s *Server) createCreditHandler(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad JSON: " + err.Error()})
		return
	}

	today := s.now()
	origin, err := parseDateField("origin_date", req.OriginDate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if origin == nil && req.OriginDate == "" {
		d := today
		origin = &d
	}
	nextDue, err := parseDateField("next_due_date", req.NextDueDate)
	if err != nil {
		s.writeError(w, err)
		return
	}

	c, err := engine.NewCredit(engine.CreditInput{
		Client:      req.Client,
		Principal:   req.Principal,
		Frequency:   models.NormalizeFrequency(req.Frequency),
		OriginDate:  origin,
		PaidToDate:  req.PaidToDate,
		NextDueDate: nextDue,
	}, today)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.storage.Add(c); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listCreditsHandler(w http.ResponseWriter, r *http.Request) {
	s.refresh()

	status := r.URL.Query().Get("status")
	client := r.URL.Query().Get("client")

	var credits []*models.Credit
	switch {
	case client != "":
		credits = s.storage.FilterByClientSubstring(client)
		if status != "" {
			credits = keepStatus(credits, models.Status(status))
		}
	case status != "":
		credits = s.storage.FilterByStatus(models.Status(status))
	default:
		credits = s.storage.All()
	}
	s.writeJSON(w, http.StatusOK, credits)
}

func (s *Server) getCreditHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credit id"})
		return
	}
	s.refresh()
	c, err := s.storage.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

type creditPatch struct {
	Client      *string          `json:"client"`
	Principal   *decimal.Decimal `json:"principal"`
	Frequency   *string          `json:"frequency"`
	OriginDate  *string          `json:"origin_date"`
	NextDueDate *string          `json:"next_due_date"`
	PaidToDate  *decimal.Decimal `json:"paid_to_date"`
}

// updateCreditHandler applies a field edit and re-runs the engine. An edit
// that fails validation leaves the stored credit untouched.
func (s *Server) updateCreditHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credit id"})
		return
	}

	var patch creditPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad JSON: " + err.Error()})
		return
	}

	today := s.now()
	updated, err := s.storage.Update(id, func(c *models.Credit) error {
		if err := applyPatch(c, patch); err != nil {
			return err
		}
		engine.Recompute(c, today)
		c.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func applyPatch(c *models.Credit, patch creditPatch) error {
	if patch.Client != nil {
		if *patch.Client == "" {
			return models.ValidationError{Field: "client", Reason: "must not be empty"}
		}
		c.Client = *patch.Client
	}
	if patch.Principal != nil {
		if patch.Principal.IsNegative() {
			return models.ValidationError{Field: "principal", Reason: "must be non-negative"}
		}
		c.Principal = *patch.Principal
	}
	if patch.PaidToDate != nil {
		if patch.PaidToDate.IsNegative() {
			return models.ValidationError{Field: "paid_to_date", Reason: "must be non-negative"}
		}
		c.PaidToDate = *patch.PaidToDate
	}
	if patch.Frequency != nil {
		c.Frequency = models.NormalizeFrequency(*patch.Frequency)
	}
	if patch.OriginDate != nil {
		d, err := parseDateField("origin_date", *patch.OriginDate)
		if err != nil {
			return err
		}
		c.OriginDate = d
	}
	if patch.NextDueDate != nil {
		d, err := parseDateField("next_due_date", *patch.NextDueDate)
		if err != nil {
			return err
		}
		c.NextDueDate = d
	}
	return nil
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credit id"})
		return
	}
	s.applyPayment(w, r, id)
}

// recordClientPaymentHandler resolves a client name to the first matching
// credit in insertion order. Duplicate names silently pay the first row;
// the id route is the unambiguous path.
func (s *Server) recordClientPaymentHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.storage.FindFirstByClient(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.applyPayment(w, r, c.ID)
}

func (s *Server) applyPayment(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad JSON: " + err.Error()})
		return
	}

	today := s.now()
	updated, err := s.storage.Update(id, func(c *models.Credit) error {
		return engine.ApplyPayment(c, req.Amount, today)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, updated)
}

// importHandler accepts multipart/form-data with a `file` field holding the
// xlsx credit book. The collection is replaced by default; pass mode=append
// to add the rows to the current session instead. Flagged rows are reported
// in the response, the rest of the file loads.
func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad multipart: " + err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	credits, issues, err := sheet.Read(file, s.now())
	if err != nil {
		s.logger.Printf("[IMPORT] %q failed: %v", header.Filename, err)
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	if r.FormValue("mode") == "append" {
		for _, c := range credits {
			if err := s.storage.Add(c); err != nil {
				s.writeError(w, err)
				return
			}
		}
	} else {
		s.storage.ReplaceAll(credits)
	}

	s.logger.Printf("[IMPORT] %q loaded=%d flagged=%d", header.Filename, len(credits), len(issues))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"loaded": len(credits),
		"issues": issues,
	})
}

func (s *Server) exportHandler(w http.ResponseWriter, _ *http.Request) {
	s.refresh()
	credits := s.storage.All()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="creditos_actualizados.xlsx"`)
	if err := sheet.Write(w, credits); err != nil {
		// Headers are already out; all we can do is log.
		s.logger.Printf("[EXPORT] failed: %v", err)
	}
}

func keepStatus(credits []*models.Credit, status models.Status) []*models.Credit {
	out := []*models.Credit{}
	for _, c := range credits {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// parseDateField treats an empty string as unset and rejects anything
// unparseable. The lenient coercion policy belongs to the spreadsheet
// import; an explicit API edit with a bad date is an operator mistake.
func parseDateField(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d := sheet.ParseDate(raw)
	if d == nil {
		return nil, models.ValidationError{Field: field, Reason: "unparseable date: " + raw}
	}
	return d, nil
}

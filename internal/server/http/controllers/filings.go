package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rzbill/filings/internal/filings"
)

// maxCreateBody bounds POST /v1/filings bodies.
const maxCreateBody = 32 << 20

// FilingsController serves the filings endpoints.
type FilingsController struct {
	svc *filings.Service
}

// NewFilingsController creates a new filings controller.
func NewFilingsController(svc *filings.Service) *FilingsController {
	return &FilingsController{svc: svc}
}

// RegisterRoutes registers the filings routes:
//
//	GET  /v1/filings/{id}
//	GET  /v1/sources/{source}/filings?page_size=&after=&filter=
//	POST /v1/filings
func (c *FilingsController) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/filings/{id:[0-9]+}", c.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/v1/sources/{source}/filings", c.handleList).Methods(http.MethodGet)
	r.HandleFunc("/v1/filings", c.handleCreate).Methods(http.MethodPost)
}

type createReq struct {
	Filings []filings.Filing `json:"filings"`
}

func (c *FilingsController) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	f, err := c.svc.Get(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (c *FilingsController) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, err := parseUint(q.Get("after"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid after")
		return
	}
	page, err := c.svc.List(r.Context(), filings.ListFilings{
		Source:   mux.Vars(r)["source"],
		PageSize: parseLimit(q.Get("page_size")),
		After:    after,
		Filter:   q.Get("filter"),
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleCreate answers 201 when every filing was written and 200 when some
// were rejected as duplicates; the body carries the tally either way.
func (c *FilingsController) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReq
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res, err := c.svc.Create(r.Context(), req.Filings)
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := http.StatusCreated
	if res.Result.FailureCount > 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

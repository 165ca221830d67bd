package shareapi

import (
	"net/http"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/go-chi/chi/v5"
)

type recordCreateRequest struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	CommodityID uint64 `json:"commodityId"`
	Reward      int64  `json:"reward"`
	Reason      string `json:"reason"`
}

func (a *ShareAPI) createRecord(w http.ResponseWriter, r *http.Request) {
	var req recordCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := a.records.Append(r.Context(), models.RecordCreateInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Record created", toRecordView(rec))
}

func (a *ShareAPI) listRecords(w http.ResponseWriter, r *http.Request) {
	rs, err := a.records.List(r.Context(), queryString(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]recordView, 0, len(rs))
	for _, rec := range rs {
		out = append(out, toRecordView(rec))
	}
	writeJSON(w, http.StatusOK, "Records found", out)
}

func (a *ShareAPI) getReputation(w http.ResponseWriter, r *http.Request) {
	rep, err := a.records.Reputation(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Record found", reputationView(*rep))
}

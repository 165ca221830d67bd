package shareapi

import (
	"encoding/json"
	"net/http"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
)

type storageGroupCreateRequest struct {
	Name        string  `json:"name"`
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	LockerCount int     `json:"lockerCount"`
}

type storageGroupPatchRequest struct {
	Name      *string  `json:"name"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

type lockerCreateRequest struct {
	StorageGroupID uint64 `json:"storageGroupId"`
}

// commodityId uses a raw message so that an explicit null can be told apart from a missing key.
type lockerPatchRequest struct {
	StorageGroupID *uint64         `json:"storageGroupId"`
	CommodityID    json.RawMessage `json:"commodityId"`
}

func (a *ShareAPI) createStorageGroup(w http.ResponseWriter, r *http.Request) {
	var req storageGroupCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := a.lockers.CreateStorageGroup(r.Context(), models.StorageGroupCreateInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Storage group created", toStorageGroupView(g))
}

func (a *ShareAPI) listStorageGroups(w http.ResponseWriter, r *http.Request) {
	gs, err := a.lockers.ListStorageGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]storageGroupView, 0, len(gs))
	for _, g := range gs {
		out = append(out, toStorageGroupView(g))
	}
	writeJSON(w, http.StatusOK, "Storage groups found", out)
}

func (a *ShareAPI) getStorageGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := a.lockers.GetStorageGroup(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Storage group found", toStorageGroupView(g))
}

func (a *ShareAPI) patchStorageGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req storageGroupPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := a.lockers.PatchStorageGroup(r.Context(), id, models.StorageGroupPatch(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Storage group patched", toStorageGroupView(g))
}

func (a *ShareAPI) deleteStorageGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.lockers.DeleteStorageGroup(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Storage group deleted", nil)
}

func (a *ShareAPI) createLocker(w http.ResponseWriter, r *http.Request) {
	var req lockerCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := a.lockers.CreateLocker(r.Context(), req.StorageGroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Storage created", toLockerView(l))
}

func (a *ShareAPI) listLockers(w http.ResponseWriter, r *http.Request) {
	groupID, err := queryUint(r, "storageGroupId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ls, err := a.lockers.ListLockers(r.Context(), groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Storages found", toLockerViews(ls))
}

func (a *ShareAPI) getLocker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := a.lockers.GetLocker(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Storage found", toLockerView(l))
}

func (a *ShareAPI) patchLocker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req lockerPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := models.LockerPatch{StorageGroupID: req.StorageGroupID}
	switch string(req.CommodityID) {
	case "":
	case "null":
		p.ClearCommodity = true
	default:
		var cid uint64
		if err := json.Unmarshal(req.CommodityID, &cid); err != nil {
			writeError(w, r, errors.Wrapf(models.ErrValidation, "invalid commodityId: %s", err.Error()))
			return
		}
		p.CommodityID = &cid
	}

	l, err := a.lockers.PatchLocker(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Storage patched", toLockerView(l))
}

func (a *ShareAPI) deleteLocker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.lockers.DeleteLocker(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Storage deleted", nil)
}

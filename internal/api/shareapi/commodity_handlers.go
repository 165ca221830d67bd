package shareapi

import (
	"net/http"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/BearBump/ShareBox/internal/search"
	"github.com/pkg/errors"
)

type commodityCreateRequest struct {
	GiverID        string   `json:"giverId"`
	StorageGroupID uint64   `json:"storageGroupId"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Condition      string   `json:"condition"`
	Images         []string `json:"images"`
}

type commodityPatchRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Condition   *string   `json:"condition"`
	Images      *[]string `json:"images"`
	Status      *string   `json:"status"`
	ReceiverID  *string   `json:"receiverId"`
}

func (a *ShareAPI) createCommodity(w http.ResponseWriter, r *http.Request) {
	var req commodityCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, _, err := a.commodities.Create(r.Context(), models.CommodityCreateInput{
		GiverID:        req.GiverID,
		StorageGroupID: req.StorageGroupID,
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		Condition:      req.Condition,
		Images:         req.Images,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Commodity created", toCommodityView(c, a.now()))
}

func (a *ShareAPI) getCommodity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.commodities.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Commodity found", toCommodityView(c, a.now()))
}

func (a *ShareAPI) patchCommodity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req commodityPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := a.commodities.Patch(r.Context(), id, models.CommodityPatch(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Commodity updated", toCommodityView(c, a.now()))
}

func (a *ShareAPI) deleteCommodity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.commodities.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Commodity deleted", nil)
}

// listCommodities serves both plain filtering and ranked search. Ranking needs longitude,
// latitude and keyword together.
func (a *ShareAPI) listCommodities(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := a.commodities.Search(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if q.Ranked() {
		writeJSON(w, http.StatusOK, "Commodities found", toRankedViews(out))
		return
	}
	writeJSON(w, http.StatusOK, "Commodities found", toCommodityViews(out, a.now()))
}

func parseSearchQuery(r *http.Request) (search.Query, error) {
	var q search.Query
	q.Filter.Status = queryString(r, "status")
	q.Filter.GiverID = queryString(r, "giverId")
	q.Filter.ReceiverID = queryString(r, "receiverId")

	groupID, err := queryUint(r, "storageGroupId")
	if err != nil {
		return q, err
	}
	q.Filter.StorageGroupID = groupID

	lon, err := queryFloat(r, "longitude")
	if err != nil {
		return q, err
	}
	lat, err := queryFloat(r, "latitude")
	if err != nil {
		return q, err
	}
	if (lon == nil) != (lat == nil) {
		return q, errors.Wrap(models.ErrValidation, "longitude and latitude go together")
	}
	if lon != nil {
		q.Point = &search.Point{Longitude: *lon, Latitude: *lat}
	}
	q.Keyword = queryString(r, "keyword")
	return q, nil
}

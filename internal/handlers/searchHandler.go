package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/plantdex/plantdex/internal/adapter"
	"github.com/plantdex/plantdex/internal/api"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/search"
)

const (
	defaultSearchLimit    = 10
	defaultAnalogLimit    = 5
	defaultSearchLanguage = "ru"
)

// SearchHandler godoc
// @Summary      Hybrid search over ingested documents
// @Description  Fuses dense-vector and lexical BM25 lanes; filters apply to both lanes.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      api.SearchRequest   true  "Query and filters"
// @Success      200      {object}  api.SearchResponse
// @Failure      400      {object}  api.ErrorResponse
// @Router       /search [post]
func SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.SearchRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logH.Warn("Bad search request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	limit := requestData.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if requestData.Language == "" {
		requestData.Language = defaultSearchLanguage
	}

	results, err := handlerInstance.search.Search(r.Context(), search.Request{
		Query:         requestData.Query,
		K:             limit,
		Kinds:         toChunkKinds(requestData.Kinds),
		Filter:        adapter.ToSearchFilter(requestData),
		WithSourceURL: requestData.WithSourceURL,
	})
	if err != nil {
		writeFaultResponse(w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(results))
}

// AnalogSearchHandler godoc
// @Summary      Find equipment analogs
// @Description  Blends hybrid-search relevance with numeric parameter closeness.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      api.AnalogSearchRequest   true  "Equipment type and target parameters"
// @Success      200      {object}  api.AnalogSearchResponse
// @Failure      400      {object}  api.ErrorResponse
// @Router       /search/analogs [post]
func AnalogSearchHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.AnalogSearchRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logH.Warn("Bad analog search request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if requestData.EquipmentType == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "equipment_type is required")
		return
	}
	limit := requestData.Limit
	if limit == 0 {
		limit = defaultAnalogLimit
	}

	results, err := handlerInstance.search.SearchAnalogs(r.Context(), search.AnalogRequest{
		Description:   requestData.Description,
		EquipmentType: requestData.EquipmentType,
		Parameters:    requestData.Parameters,
		Discipline:    docModel.Discipline(requestData.Discipline),
		Vendor:        requestData.Vendor,
		K:             limit,
		Roles:         requestData.Roles,
	})
	if err != nil {
		writeFaultResponse(w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAnalogSearchResponse(results))
}

func toChunkKinds(raw []string) []docModel.ChunkKind {
	kinds := make([]docModel.ChunkKind, 0, len(raw))
	for _, k := range raw {
		kinds = append(kinds, docModel.ChunkKind(k))
	}
	return kinds
}

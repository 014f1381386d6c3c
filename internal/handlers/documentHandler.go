package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/plantdex/plantdex/internal/adapter"
	"github.com/plantdex/plantdex/internal/adapter/utils"
	"github.com/plantdex/plantdex/internal/api"
	"github.com/plantdex/plantdex/internal/config"
)

const maxDocumentUploadSize = 32 << 20 //32mb

// UploadDocumentHandler godoc
// @Summary      Upload an outgoing document for control
// @Description  Receives a file via multipart/form-data and registers it in the received state.
// @Tags         OutgoingControl
// @Accept       multipart/form-data
// @Produce      json
// @Param        document  formData  file  true  "The document to check"
// @Success      201  {object}  api.DocumentResponse
// @Failure      400  {object}  api.ErrorResponse
// @Router       /documents/ [post]
func UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	if err := r.ParseMultipartForm(maxDocumentUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "file too large or bad request")
		return
	}
	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "could not retrieve file")
		return
	}
	defer fileReader.Close()

	content, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "could not read file")
		return
	}

	doc, err := handlerInstance.outgoing.Submit(r.Context(), fileMetadata.Filename, content)
	if err != nil {
		writeFaultResponse(w, err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToDocumentResponse(doc))
}

// ProcessDocumentHandler godoc
// @Summary      Start checking an uploaded document
// @Description  Extraction, checks and verdict run in the background; poll the document for the result.
// @Tags         OutgoingControl
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.DocumentResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id}/process [post]
func ProcessDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	documentID := utils.GetChiURLParam(r, "id")
	doc, found := handlerInstance.outgoing.Get(r.Context(), documentID)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, "document not found")
		return
	}

	// the request context dies with the response; processing carries on
	// with only the trace attached
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceID(r.Context()))
	go func() {
		if _, err := handlerInstance.outgoing.Process(ctx, documentID); err != nil {
			logH.Warn("Document processing failed", "documentId", documentID, "error", err)
		}
	}()
	writeJsonResponse(w, http.StatusAccepted, adapter.ToDocumentResponse(doc))
}

// GetDocumentHandler godoc
// @Summary      Get an outgoing document with its check report
// @Tags         OutgoingControl
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	documentID := utils.GetChiURLParam(r, "id")
	doc, found := handlerInstance.outgoing.Get(r.Context(), documentID)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, "document not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

// SpellCheckHandler godoc
// @Summary      Spell-check raw text
// @Tags         OutgoingControl
// @Accept       json
// @Produce      json
// @Param        request  body      api.CheckTextRequest  true  "Text to check"
// @Success      200      {object}  ocModel.CheckResult
// @Failure      400      {object}  api.ErrorResponse
// @Router       /spell-check [post]
func SpellCheckHandler(w http.ResponseWriter, r *http.Request) {
	runSingleCheck(w, r, "spell")
}

// StyleAnalysisHandler godoc
// @Summary      Analyze style and tone of raw text
// @Tags         OutgoingControl
// @Accept       json
// @Produce      json
// @Param        request  body      api.CheckTextRequest  true  "Text to check"
// @Success      200      {object}  ocModel.CheckResult
// @Failure      400      {object}  api.ErrorResponse
// @Router       /style-analysis [post]
func StyleAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	runSingleCheck(w, r, "style")
}

// EthicsCheckHandler godoc
// @Summary      Check raw text for ethics violations
// @Tags         OutgoingControl
// @Accept       json
// @Produce      json
// @Param        request  body      api.CheckTextRequest  true  "Text to check"
// @Success      200      {object}  ocModel.CheckResult
// @Failure      400      {object}  api.ErrorResponse
// @Router       /ethics-check [post]
func EthicsCheckHandler(w http.ResponseWriter, r *http.Request) {
	runSingleCheck(w, r, "ethics")
}

// TerminologyCheckHandler godoc
// @Summary      Check raw text against the terminology glossary
// @Tags         OutgoingControl
// @Accept       json
// @Produce      json
// @Param        request  body      api.CheckTextRequest  true  "Text to check"
// @Success      200      {object}  ocModel.CheckResult
// @Failure      400      {object}  api.ErrorResponse
// @Router       /terminology-check [post]
func TerminologyCheckHandler(w http.ResponseWriter, r *http.Request) {
	runSingleCheck(w, r, "terminology")
}

// FinalReviewHandler godoc
// @Summary      Run the full check suite on raw text
// @Tags         OutgoingControl
// @Accept       json
// @Produce      json
// @Param        request  body      api.CheckTextRequest  true  "Text to check"
// @Success      200      {object}  ocModel.Report
// @Failure      400      {object}  api.ErrorResponse
// @Router       /final-review [post]
func FinalReviewHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	text, ok := decodeCheckText(w, r)
	if !ok {
		return
	}
	report, err := handlerInstance.outgoing.CheckText(r.Context(), text)
	if err != nil {
		writeFaultResponse(w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, report)
}

func runSingleCheck(w http.ResponseWriter, r *http.Request, name string) {
	if !validateContext(r.Context()) {
		return
	}
	text, ok := decodeCheckText(w, r)
	if !ok {
		return
	}
	result, err := handlerInstance.outgoing.CheckOne(r.Context(), name, text)
	if err != nil {
		writeFaultResponse(w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, result)
}

func decodeCheckText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var requestData api.CheckTextRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logH.Warn("Bad check request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return "", false
	}
	return requestData.Text, true
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/match-arena/services"
)

const maxEvidenceUploadSize = 10 << 20 // 10MB

type EvidenceHandler struct {
	adjudication services.AdjudicationService
	queries      services.MatchQueryService
}

func NewEvidenceHandler(adjudication services.AdjudicationService, queries services.MatchQueryService) *EvidenceHandler {
	return &EvidenceHandler{adjudication: adjudication, queries: queries}
}

// Submit accepts a multipart screenshot upload and runs it through the
// adjudication pipeline.
func (h *EvidenceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceUploadSize)
	if err := r.ParseMultipartForm(maxEvidenceUploadSize); err != nil {
		badRequestResponse(w, r, errors.New("could not parse multipart form, upload may be too large"))
		return
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		badRequestResponse(w, r, errors.New("a 'screenshot' file field is required"))
		return
	}
	defer file.Close()

	receipt, err := h.adjudication.SubmitEvidence(r.Context(), actor, services.SubmitEvidenceInput{
		MatchID:     matchID,
		TeamID:      teamID,
		ContentType: header.Header.Get("Content-Type"),
		Image:       file,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"evidence": receipt}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EvidenceHandler) ListByMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	shots, err := h.queries.Evidence(r.Context(), actor, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"evidence": shots}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

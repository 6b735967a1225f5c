package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/services"
)

var validate = validator.New()

type errorResponse struct {
	Error      string                 `json:"error"`
	Kind       string                 `json:"kind,omitempty"`
	Candidates []models.CompanyRecord `json:"candidates,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to the HTTP status returned to clients.
func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindFetchFailed, core.KindEmbeddingFailed:
		return http.StatusBadGateway
	case core.KindPrecondition, core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindDuplicate, core.KindAmbiguous:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)
	resp := errorResponse{Error: err.Error(), Kind: string(kind)}

	var amb *services.AmbiguousCompanyError
	if errors.As(err, &amb) {
		resp.Candidates = amb.Candidates
	}
	writeJSON(w, statusFor(kind), resp)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: string(core.KindInvalidInput)})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// parseForms reads repeated or comma separated form values.
func parseForms(values []string) []models.FormType {
	var forms []models.FormType
	for _, v := range values {
		for _, f := range strings.Split(v, ",") {
			if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
				forms = append(forms, models.FormType(f))
			}
		}
	}
	return forms
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

package server

import (
	"errors"
	"mime"
	"net/http"

	"gryork/internal/validation"
	"gryork/pkg/types"

	"github.com/alexedwards/flow"
)

// handlePostApplication is public. The careers page posts a plain HTML form;
// other clients send JSON.
func (s *Service) handlePostApplication(w http.ResponseWriter, r *http.Request) {
	app := new(types.CareerApplication)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			s.writeError(w, r, types.NewValidationError("body: invalid form payload"))
			return
		}
		if err := decoder.Decode(app, r.PostForm); err != nil {
			s.writeError(w, r, types.NewValidationError("body: "+err.Error()))
			return
		}
	default:
		if err := s.decodeJSON(r, validation.SchemaCareerApplication, app); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	visitor := types.Actor{IPAddress: clientIP(r), UserAgent: r.UserAgent()}

	created, err := s.careers.Submit(r.Context(), visitor, app)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Service) handleListApplications(w http.ResponseWriter, r *http.Request) {
	var filter types.ApplicationFilter
	if err := decodeQuery(r, &filter); err != nil {
		s.writeError(w, r, err)
		return
	}

	apps, err := s.careers.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, apps)
}

func (s *Service) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.careers.Get(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, app)
}

func (s *Service) handlePatchApplication(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	var review types.ApplicationReview
	if err := s.decodeJSON(r, validation.SchemaApplicationReview, &review); err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.careers.Review(r.Context(), actor, flow.Param(r.Context(), "id"), review)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, app)
}

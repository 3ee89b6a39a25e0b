package middleware

import (
	"mime"
	"net/http"

	"github.com/foodiemap/foodiemap/internal/api/models"
)

// ContentTypeJSON sets the Content-Type header to application/json.
// Handlers that write problem+json override it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects POST, PUT and PATCH requests whose declared body type
// is not JSON with a 415 problem. A missing Content-Type is accepted since the
// body decoder rejects anything that is not JSON anyway.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				break
			}
			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil || mediaType != "application/json" {
				problem := models.NewProblem(models.ProblemTypeMediaType, GetRequestID(r.Context()), "request body must be application/json")
				problem.At(r.URL.Path).Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

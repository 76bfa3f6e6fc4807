// Package formutil binds JSON request bodies and URL parameters for the
// feature handlers.
//
// Example usage:
//
//	var in createRoomInput
//	if !formutil.Bind(w, r, &in) {
//		return
//	}
//	farmID, ok := formutil.IDParam(w, r, "farmID")
//	if !ok {
//		return
//	}
package formutil

import (
	"net/http"
	"strings"

	"github.com/dalemusser/dormhub/internal/app/system/inputval"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bind decodes the JSON body into dst and runs its struct-tag rules.
// On failure the error response is already written and false is returned.
func Bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := respond.Decode(r, dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	if res := inputval.Validate(dst); res.HasErrors() {
		respond.Error(w, http.StatusUnprocessableEntity, res.First(), res.Messages()...)
		return false
	}
	return true
}

// IDParam parses the chi URL parameter name as an ObjectID, answering
// 400 when it is malformed.
func IDParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid "+strings.TrimSuffix(name, "ID")+" id")
		return primitive.NilObjectID, false
	}
	return oid, true
}

// OptionalID parses s as an ObjectID. Empty input yields nil.
func OptionalID(s string) (*primitive.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

// IDs parses every hex string in ss, stopping at the first bad one.
func IDs(ss []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ss))
	for _, s := range ss {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

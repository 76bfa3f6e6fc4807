// internal/app/features/articles/articles.go
package articles

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	articlestore "github.com/dalemusser/dormhub/internal/app/store/articles"
	"github.com/dalemusser/dormhub/internal/app/system/formutil"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/dormhub/internal/domain/models"
)

type articleInput struct {
	Name     string `json:"name" validate:"required,max=80" label:"Name"`
	Category string `json:"category" validate:"max=40" label:"Category"`
	Unit     string `json:"unit" validate:"max=20" label:"Unit"`
}

func (h *Handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, articlestore.ErrNotFound):
		uierrors.RenderNotFound(w, "article")
	case errors.Is(err, articlestore.ErrDuplicateArticle), errors.Is(err, articlestore.ErrInUse):
		uierrors.RenderConflict(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, op+" failed", err, "A database error occurred.")
	}
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.articles.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list articles failed", err, "A database error occurred.")
		return
	}
	if list == nil {
		list = []models.ArticleName{}
	}
	respond.OK(w, list)
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.articles.GetByID(ctx, id)
	if err != nil {
		h.renderStoreError(w, r, err, "load article")
		return
	}
	respond.OK(w, a)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in articleInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.articles.Create(ctx, models.ArticleName{Name: in.Name, Category: in.Category, Unit: in.Unit})
	if err != nil {
		h.renderStoreError(w, r, err, "create article")
		return
	}
	h.AuditLog.Created(ctx, r, "article_name", a.ID, nil, a.Name)
	respond.Created(w, a)
}

// HandleUpdate renames an article; stock lines pick up the new name.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	var in articleInput
	if !formutil.Bind(w, r, &in) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.articles.Update(ctx, id, models.ArticleName{Name: in.Name, Category: in.Category, Unit: in.Unit}); err != nil {
		h.renderStoreError(w, r, err, "update article")
		return
	}
	h.AuditLog.Updated(ctx, r, "article_name", id, nil, "name,category,unit")

	a, err := h.articles.GetByID(ctx, id)
	if err != nil {
		h.renderStoreError(w, r, err, "reload article")
		return
	}
	respond.OK(w, a)
}

// HandleDelete refuses with 409 while any farm stocks the article.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.articles.Delete(ctx, id); err != nil {
		h.renderStoreError(w, r, err, "delete article")
		return
	}
	h.AuditLog.Deleted(ctx, r, "article_name", id, nil, "")
	respond.NoContent(w)
}

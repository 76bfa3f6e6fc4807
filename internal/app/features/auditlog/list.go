// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/dormhub/internal/app/features/errors"
	"github.com/dalemusser/dormhub/internal/app/store/audit"
	"github.com/dalemusser/dormhub/internal/app/system/authz"
	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/dalemusser/dormhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList handles GET /audit.
//
// Query parameters: category, event_type, entity, start_date and
// end_date (YYYY-MM-DD, end inclusive) and page (1-based).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	scope, ok := authz.FarmScope(r)
	if !ok {
		uierrors.RenderForbidden(w, "You are not assigned to a farm.")
		return
	}

	category := strings.TrimSpace(query.Get(r, "category"))
	eventType := strings.TrimSpace(query.Get(r, "event_type"))
	known := eventTypesForCategory(category)
	if known == nil {
		uierrors.RenderBadRequest(w, "Unknown category.", category)
		return
	}
	if eventType != "" && !slices.Contains(known, eventType) {
		uierrors.RenderBadRequest(w, "Unknown event type.", eventType)
		return
	}

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		FarmID:    scope,
		Category:  category,
		EventType: eventType,
		Entity:    strings.TrimSpace(query.Get(r, "entity")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if s := query.Get(r, "start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			uierrors.RenderBadRequest(w, "start_date must be YYYY-MM-DD.")
			return
		}
		filter.Since = &t
	}
	if s := query.Get(r, "end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			uierrors.RenderBadRequest(w, "end_date must be YYYY-MM-DD.")
			return
		}
		end := t.Add(24*time.Hour - time.Millisecond)
		filter.Until = &end
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, err := h.events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events", err, "A database error occurred.")
		return
	}
	total, err := h.events.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events", err, "A database error occurred.")
		return
	}

	items := h.resolve(ctx, events)
	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	respond.OK(w, listResponse{
		Events:     items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	})
}

// resolve turns events into list items, replacing user and farm ids by
// names. Lookup failures leave the hex ids in place.
func (h *Handler) resolve(ctx context.Context, events []audit.Event) []listItem {
	userSet := map[primitive.ObjectID]struct{}{}
	farmSet := map[primitive.ObjectID]struct{}{}
	for _, e := range events {
		if e.ActorID != nil {
			userSet[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			userSet[*e.UserID] = struct{}{}
		}
		if e.FarmID != nil {
			farmSet[*e.FarmID] = struct{}{}
		}
	}

	userNames, err := h.users.Names(ctx, keys(userSet))
	if err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
	}
	farmNames, err := h.farms.Names(ctx, keys(farmSet))
	if err != nil {
		h.Log.Warn("failed to fetch farm names for audit log", zap.Error(err))
	}
	name := func(names map[primitive.ObjectID]string, id *primitive.ObjectID) string {
		if id == nil {
			return ""
		}
		if n, ok := names[*id]; ok {
			return n
		}
		return id.Hex()
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:        e.ID.Hex(),
			Timestamp: e.Timestamp,
			Category:  e.Category,
			EventType: e.EventType,
			Entity:    e.Entity,
			ActorName: name(userNames, e.ActorID),
			UserName:  name(userNames, e.UserID),
			FarmName:  name(farmNames, e.FarmID),
			IP:        e.IP,
			Success:   e.Success,
			Failure:   e.FailureReason,
			Details:   e.Details,
		}
		if e.TargetID != nil {
			item.TargetID = e.TargetID.Hex()
		}
		items = append(items, item)
	}
	return items
}

// ServeEventTypes handles GET /audit/event-types.
func (h *Handler) ServeEventTypes(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, map[string]any{"categories": allCategories()})
}

func keys(set map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/dormhub/internal/app/store/audit"
	"github.com/dalemusser/dormhub/internal/app/system/auth"
	"github.com/dalemusser/dormhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category: "all" (MongoDB + zap), "db", "log" or "off".
type Config struct {
	Auth  string
	Admin string
}

// Logger writes audit events to the audit store and/or zap.
// A nil *Logger is a no-op so handlers can be built without one in tests.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(e audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	}
	if e.Entity != "" {
		fields = append(fields, zap.String("entity", e.Entity))
	}
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", e.UserID.Hex()))
	}
	if e.ActorID != nil {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	if e.TargetID != nil {
		fields = append(fields, zap.String("target_id", e.TargetID.Hex()))
	}
	if e.FarmID != nil {
		fields = append(fields, zap.String("farm_id", e.FarmID.Hex()))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if e.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records e according to the category's configured destination.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}

	setting := "all"
	switch e.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(e)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, e); err != nil {
			l.zapLog.Error("failed to store audit event", zap.Error(err), zap.String("event_type", e.EventType))
		}
	}
}

// --- Authentication ---

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, farmID *primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		FarmID:    farmID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginFailed logs a refused sign-in. userID is nil when the email is unknown.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    &userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Admin actions ---

// Action describes an admin change for Admin.
type Action struct {
	EventType string
	Entity    string
	TargetID  *primitive.ObjectID
	FarmID    *primitive.ObjectID
	Details   map[string]string
	Failure   string // non-empty marks the event unsuccessful
}

// Admin logs an admin action performed by the request's user.
func (l *Logger) Admin(ctx context.Context, r *http.Request, a Action) {
	if l == nil {
		return
	}
	e := audit.Event{
		Category:      audit.CategoryAdmin,
		EventType:     a.EventType,
		Entity:        a.Entity,
		TargetID:      a.TargetID,
		FarmID:        a.FarmID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       a.Failure == "",
		FailureReason: a.Failure,
		Details:       a.Details,
	}
	if u, ok := auth.CurrentUser(r); ok {
		if id := u.ObjectID(); !id.IsZero() {
			e.ActorID = &id
		}
		if e.Details == nil {
			e.Details = map[string]string{}
		}
		e.Details["actor_role"] = u.Role
	}
	l.Log(ctx, e)
}

// Created, Updated and Deleted are shorthands for entity CRUD.
func (l *Logger) Created(ctx context.Context, r *http.Request, entity string, id primitive.ObjectID, farmID *primitive.ObjectID, label string) {
	l.Admin(ctx, r, Action{EventType: audit.EventCreated, Entity: entity, TargetID: &id, FarmID: farmID, Details: map[string]string{"label": label}})
}

func (l *Logger) Updated(ctx context.Context, r *http.Request, entity string, id primitive.ObjectID, farmID *primitive.ObjectID, fields string) {
	l.Admin(ctx, r, Action{EventType: audit.EventUpdated, Entity: entity, TargetID: &id, FarmID: farmID, Details: map[string]string{"fields": fields}})
}

func (l *Logger) Deleted(ctx context.Context, r *http.Request, entity string, id primitive.ObjectID, farmID *primitive.ObjectID, label string) {
	l.Admin(ctx, r, Action{EventType: audit.EventDeleted, Entity: entity, TargetID: &id, FarmID: farmID, Details: map[string]string{"label": label}})
}

// internal/app/features/auditlog/types.go
package auditlog

import (
	"slices"
	"time"

	"github.com/dalemusser/dormhub/internal/app/store/audit"
)

// listItem is one audit event with its ids resolved to names.
type listItem struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Category  string            `json:"category"`
	EventType string            `json:"event_type"`
	Entity    string            `json:"entity,omitempty"`
	TargetID  string            `json:"target_id,omitempty"`
	ActorName string            `json:"actor,omitempty"`
	UserName  string            `json:"user,omitempty"`
	FarmName  string            `json:"farm,omitempty"`
	IP        string            `json:"ip"`
	Success   bool              `json:"success"`
	Failure   string            `json:"failure_reason,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// listResponse is the body of GET /audit.
type listResponse struct {
	Events     []listItem `json:"events"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int64      `json:"total"`
	HasPrev    bool       `json:"has_prev"`
	HasNext    bool       `json:"has_next"`
}

type categoryOption struct {
	Value      string   `json:"value"`
	Label      string   `json:"label"`
	EventTypes []string `json:"event_types"`
}

var authEvents = []string{
	audit.EventLoginSuccess,
	audit.EventLoginFailedUserNotFound,
	audit.EventLoginFailedWrongPassword,
	audit.EventLoginFailedUserDisabled,
	audit.EventLoginFailedRateLimit,
	audit.EventLogout,
}

var adminEvents = []string{
	audit.EventCreated,
	audit.EventUpdated,
	audit.EventDeleted,
	audit.EventStockAdjusted,
	audit.EventWorkerDeparted,
	audit.EventImportCommitted,
	audit.EventTransferCreated,
	audit.EventTransferAssigned,
	audit.EventTransferCompleted,
	audit.EventTransferRejected,
	audit.EventTransferCancelled,
	audit.EventConflictResolved,
	audit.EventSecurityCodeUsed,
	audit.EventSecurityCodeDenied,
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication", EventTypes: authEvents},
		{Value: audit.CategoryAdmin, Label: "Administration", EventTypes: adminEvents},
	}
}

// eventTypesForCategory returns the event types of category, or all of
// them when category is empty. Unknown categories return nil.
func eventTypesForCategory(category string) []string {
	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		return slices.Concat(authEvents, adminEvents)
	default:
		return nil
	}
}

// Package events publishes domain notifications emitted by the planner.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"cashplan/internal/models"
)

// PlannedItemGeneratedEvent is the routing name of PlannedItemGenerated.
const PlannedItemGeneratedEvent = "planned_item.generated"

// PlannedItemGenerated is emitted after a recurring item materializes a planned item.
type PlannedItemGenerated struct {
	Event           string          `json:"event"`
	PlannedItemID   string          `json:"planned_item_id"`
	RecurringItemID string          `json:"recurring_item_id"`
	Description     string          `json:"description"`
	Type            models.FlowType `json:"type"`
	CategoryID      string          `json:"category_id"`
	PlannedDate     time.Time       `json:"planned_date"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// NewPlannedItemGenerated builds the event for an item generated from a recurring item.
func NewPlannedItemGenerated(item *models.PlannedItem, occurredAt time.Time) *PlannedItemGenerated {
	ev := &PlannedItemGenerated{
		Event:         PlannedItemGeneratedEvent,
		PlannedItemID: item.ID,
		Description:   item.Description,
		Type:          item.Type,
		CategoryID:    item.CategoryID,
		PlannedDate:   models.Day(item.PlannedDate),
		Amount:        item.Amount,
		Currency:      item.Currency,
		OccurredAt:    occurredAt.UTC(),
	}
	if item.RecurringItemID != nil {
		ev.RecurringItemID = *item.RecurringItemID
	}
	return ev
}

// ToJSON encodes the event for the wire.
func (e *PlannedItemGenerated) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PlannedItemGeneratedFromJSON decodes an event body.
func PlannedItemGeneratedFromJSON(data []byte) (*PlannedItemGenerated, error) {
	var ev PlannedItemGenerated
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Publisher delivers planner events. Publishing is best effort; callers log
// failures and carry on.
type Publisher interface {
	PublishPlannedItemGenerated(ctx context.Context, ev *PlannedItemGenerated) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishPlannedItemGenerated(context.Context, *PlannedItemGenerated) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

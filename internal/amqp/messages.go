package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"neuralbudget/internal/core"
)

type EventType string

const (
	EventBudgetSet     EventType = "budget.set"
	EventBudgetDeleted EventType = "budget.deleted"
)

// BudgetEvent announces a change to one user's budget. Set events carry the
// full budget so consumers do not need access to the primary store.
type BudgetEvent struct {
	Type      EventType `json:"type"`
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Period    string    `json:"period,omitempty"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetSetEvent builds the event published after a budget is saved.
func NewBudgetSetEvent(b core.Budget) *BudgetEvent {
	return &BudgetEvent{
		Type:      EventBudgetSet,
		ID:        b.ID,
		UserID:    b.UserID,
		Category:  b.Category,
		Amount:    b.Amount.StringFixed(2),
		Period:    string(b.Period),
		Version:   b.CreatedAt.UnixNano(),
		Timestamp: time.Now(),
	}
}

// NewBudgetDeletedEvent builds the event published after a budget is removed.
func NewBudgetDeletedEvent(userID string, id int64) *BudgetEvent {
	now := time.Now()
	return &BudgetEvent{
		Type:      EventBudgetDeleted,
		ID:        id,
		UserID:    userID,
		Version:   now.UnixNano(),
		Timestamp: now,
	}
}

func (e *BudgetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BudgetEventFromJSON decodes and validates an event body.
func BudgetEventFromJSON(data []byte) (*BudgetEvent, error) {
	var e BudgetEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventBudgetSet, EventBudgetDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID <= 0 || e.UserID == "" {
		return nil, fmt.Errorf("event missing id or user")
	}
	return &e, nil
}

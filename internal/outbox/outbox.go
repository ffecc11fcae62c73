// Package outbox appends change-feed events in the same transaction as
// the mutation they describe, giving feed consumers a gap-free stream.
package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/siteboard/siteboard/internal/models"
	"gorm.io/gorm"
)

// Append writes one ChangeEvent row. payload is JSON-marshaled; a nil
// payload (deletes) produces an empty column.
func Append(tx *gorm.DB, table, op, rowID, actor string, payload any) error {
	var body string
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("outbox: marshal payload for %s/%s: %w", table, rowID, err)
		}
		body = string(data)
	}

	event := models.ChangeEvent{
		EventID: uuid.NewString(),
		Table:   table,
		Op:      op,
		RowID:   rowID,
		Actor:   actor,
		Payload: body,
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("outbox: append %s %s/%s: %w", op, table, rowID, err)
	}
	return nil
}

package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/models"
)

// orderNumberPrefix starts every order number; the full format is
// NSI-YYYYMMDD-NNNN with the 4-digit sequence restarting each day.
const orderNumberPrefix = "NSI-"

// nextOrderNumber allocates the next number for the given day. The suffix is
// zero-padded to 4 digits, so the lexicographically greatest existing number
// under the day prefix carries the highest sequence. Callers must serialize
// the read-then-insert against concurrent creations (OrderService holds a
// mutex and runs this inside the creating transaction).
func nextOrderNumber(tx *gorm.DB, day time.Time) (string, error) {
	prefix := orderNumberPrefix + day.UTC().Format("20060102") + "-"

	var last models.Order
	err := tx.Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		First(&last).Error
	seq := 1
	if err == nil {
		lastSeq, perr := strconv.Atoi(last.OrderNumber[len(prefix):])
		if perr != nil {
			return "", fmt.Errorf("malformed order number %q: %w", last.OrderNumber, perr)
		}
		seq = lastSeq + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if seq > 9999 {
		return "", ErrOrderNumberExhausted
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

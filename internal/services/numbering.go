package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// NextNumber issues <prefix>-<year>-<sequence> for column of model's table.
// The sequence continues after the highest one in use that year, soft-deleted
// and hand-entered numbers included, so it never reissues a taken number.
func NextNumber(tx *gorm.DB, model interface{}, column, prefix string, now time.Time) (string, error) {
	head := fmt.Sprintf("%s-%d-", prefix, now.Year())
	var taken []string
	if err := tx.Unscoped().Model(model).
		Where(column+" LIKE ?", head+"%").
		Pluck(column, &taken).Error; err != nil {
		return "", err
	}

	last := 0
	for _, number := range taken {
		seq, err := strconv.Atoi(strings.TrimPrefix(number, head))
		if err != nil {
			continue
		}
		if seq > last {
			last = seq
		}
	}
	return fmt.Sprintf("%s%05d", head, last+1), nil
}

package csql

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Row is one result row, column name to value
type Row map[string]interface{}

// ScanRows reads all rows. Values are normalized to JSON friendly types:
// byte slices become strings and timestamps are formatted as "2006-01-02 15:04:05".
// The result is never nil.
func ScanRows(rows *sqlx.Rows) ([]Row, error) {
	result := []Row{}
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for column, value := range row {
			row[column] = normalizeValue(value)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case string, bool, int64, float64:
		return v
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64, float32:
		return v
	default:
		return fmt.Sprint(v)
	}
}

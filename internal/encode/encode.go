// Package encode serializes query result streams to the wire formats.
// Both encoders emit output incrementally: memory use is bounded by one row,
// not the result set.
package encode

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// timeLayout is the fixed textual form for date and datetime values.
const timeLayout = "2006-01-02T15:04:05"

// flushEvery bounds how many rows sit in the CSV writer's buffer before a
// flush, so clients see output while large results stream.
const flushEvery = 256

// RowSource is the result cursor the encoders consume. *query.RowStream
// satisfies it.
type RowSource interface {
	Columns() []string
	Next() bool
	Scan() ([]any, error)
	Err() error
}

// CSV streams the rows as delimited text: a header of column names, then one
// record per row. Returns the number of data rows written.
func CSV(w io.Writer, src RowSource) (int64, error) {
	cw := csv.NewWriter(w)

	if err := cw.Write(src.Columns()); err != nil {
		return 0, fmt.Errorf("encode.CSV: write header: %w", err)
	}

	var count int64
	record := make([]string, len(src.Columns()))
	for src.Next() {
		values, err := src.Scan()
		if err != nil {
			return count, err
		}
		for i, v := range values {
			record[i] = formatCSV(v)
		}
		if err := cw.Write(record); err != nil {
			return count, fmt.Errorf("encode.CSV: write record: %w", err)
		}
		count++
		if count%flushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return count, fmt.Errorf("encode.CSV: flush: %w", err)
			}
		}
	}
	if err := src.Err(); err != nil {
		return count, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return count, fmt.Errorf("encode.CSV: flush: %w", err)
	}

	return count, nil
}

// JSON streams the rows as {"data":[{...},...]}. Field order within each
// record follows the query's column order. Returns the number of records
// written.
func JSON(w io.Writer, src RowSource) (int64, error) {
	if _, err := io.WriteString(w, `{"data":[`); err != nil {
		return 0, fmt.Errorf("encode.JSON: %w", err)
	}

	columns := src.Columns()
	keys := make([][]byte, len(columns))
	for i, c := range columns {
		k, err := json.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("encode.JSON: marshal column name: %w", err)
		}
		keys[i] = k
	}

	var count int64
	for src.Next() {
		values, err := src.Scan()
		if err != nil {
			return count, err
		}

		if count > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return count, fmt.Errorf("encode.JSON: %w", err)
			}
		}

		if err := writeRecord(w, keys, values); err != nil {
			return count, err
		}
		count++
	}
	if err := src.Err(); err != nil {
		return count, err
	}

	if _, err := io.WriteString(w, "]}"); err != nil {
		return count, fmt.Errorf("encode.JSON: %w", err)
	}

	return count, nil
}

func writeRecord(w io.Writer, keys [][]byte, values []any) error {
	if _, err := io.WriteString(w, "{"); err != nil {
		return fmt.Errorf("encode.JSON: %w", err)
	}
	for i, v := range values {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return fmt.Errorf("encode.JSON: %w", err)
			}
		}
		if _, err := w.Write(keys[i]); err != nil {
			return fmt.Errorf("encode.JSON: %w", err)
		}
		if _, err := io.WriteString(w, ":"); err != nil {
			return fmt.Errorf("encode.JSON: %w", err)
		}

		encoded, err := json.Marshal(jsonValue(v))
		if err != nil {
			return fmt.Errorf("encode.JSON: marshal value: %w", err)
		}
		if _, err := w.Write(encoded); err != nil {
			return fmt.Errorf("encode.JSON: %w", err)
		}
	}
	if _, err := io.WriteString(w, "}"); err != nil {
		return fmt.Errorf("encode.JSON: %w", err)
	}
	return nil
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(timeLayout)
	case []byte:
		return string(t)
	default:
		return v
	}
}

func formatCSV(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(timeLayout)
	case []byte:
		return string(t)
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

// Package export renders query results for consumption outside the core:
// CSV and NDJSON streams for tooling, and a compressed, digest-guarded
// archive format for snapshots shipped off-device.
package export

import (
	"fmt"
	"io"

	"github.com/arloliu/stampdb/db"
)

// WriteCSV streams every row of series inside [t0MS, t1MS] to w as
// "ts_ms,value" lines under a header row. It returns the number of rows
// written.
func WriteCSV(w io.Writer, handle *db.DB, series uint16, t0MS, t1MS uint32) (int, error) {
	if _, err := fmt.Fprintln(w, "ts_ms,value"); err != nil {
		return 0, err
	}

	it, err := handle.QueryBegin(series, t0MS, t1MS)
	if err != nil {
		return 0, err
	}
	defer it.End()

	rows := 0
	for {
		ts, v, ok := it.Next()
		if !ok {
			return rows, nil
		}
		if _, err := fmt.Fprintf(w, "%d,%.9g\n", ts, v); err != nil {
			return rows, err
		}
		rows++
	}
}

// WriteNDJSON streams every row of series inside [t0MS, t1MS] to w as one
// JSON object per line. It returns the number of rows written.
func WriteNDJSON(w io.Writer, handle *db.DB, series uint16, t0MS, t1MS uint32) (int, error) {
	it, err := handle.QueryBegin(series, t0MS, t1MS)
	if err != nil {
		return 0, err
	}
	defer it.End()

	rows := 0
	for {
		ts, v, ok := it.Next()
		if !ok {
			return rows, nil
		}
		if _, err := fmt.Fprintf(w, "{\"ts_ms\":%d,\"value\":%.9g}\n", ts, v); err != nil {
			return rows, err
		}
		rows++
	}
}

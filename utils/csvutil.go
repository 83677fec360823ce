package utils

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
)

// utf8BOM makes spreadsheet apps detect the encoding correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV streams a BOM-prefixed CSV download. Field quoting follows
// encoding/csv, which escapes commas, quotes and newlines per RFC 4180.
func WriteCSV(w http.ResponseWriter, fileName string, header []string, rows [][]string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if _, err := w.Write(utf8BOM); err != nil {
		log.Printf("Error writing CSV BOM: %v", err)
		return
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		log.Printf("Error writing CSV header: %v", err)
		return
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			log.Printf("Error writing CSV row: %v", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Printf("Error flushing CSV: %v", err)
	}
}

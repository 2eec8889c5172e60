package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gryork/internal/utils"
	"gryork/pkg/types"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", types.NewValidationError(fmt.Sprintf("format: %q is not one of csv, json", s))
	}
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the download name for an export taken at t.
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("audit-logs-%s.%s", t.UTC().Format("20060102-150405"), f)
}

func Export(w io.Writer, format Format, entries []*types.AuditLogEntry) error {
	if format == FormatJSON {
		return WriteJSON(w, entries)
	}
	return WriteCSV(w, entries)
}

var csvHeader = []string{"Timestamp", "User", "Role", "Action", "Category", "Description", "Entity", "Success"}

// WriteCSV writes one row per entry under a fixed header. Every string field
// is quoted with embedded quotes doubled; Success is a bare true/false.
func WriteCSV(w io.Writer, entries []*types.AuditLogEntry) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(csvHeader, ",") + "\n"); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, entry := range entries {
		fields := []string{
			quote(entry.CreatedAt.UTC().Format(time.RFC3339)),
			quote(displayUser(entry)),
			quote(string(entry.UserRole)),
			quote(string(entry.Action)),
			quote(string(entry.Category)),
			quote(entry.Description),
			quote(displayEntity(entry)),
			strconv.FormatBool(entry.Success),
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return fmt.Errorf("write csv row %s: %w", entry.ID, err)
		}
	}

	return bw.Flush()
}

func WriteJSON(w io.Writer, entries []*types.AuditLogEntry) error {
	if entries == nil {
		entries = make([]*types.AuditLogEntry, 0)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode audit logs: %w", err)
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func displayUser(entry *types.AuditLogEntry) string {
	if name := utils.PtrString(entry.UserName); name != "" {
		return name
	}
	return entry.UserID
}

func displayEntity(entry *types.AuditLogEntry) string {
	ref := utils.PtrString(entry.EntityRef)
	if ref == "" {
		ref = entry.EntityID
	}
	if entry.EntityType == "" {
		return ref
	}
	return entry.EntityType + ":" + ref
}

package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// AuditAction is the operator action an AuditRecord describes.
type AuditAction string

const (
	AuditPromote  AuditAction = "promote"
	AuditRollback AuditAction = "rollback"
)

// AuditTagPrefix namespaces audit tags on runs. Each record writes its fields under
// AuditTagPrefix + "<id>." so repeated actions never overwrite each other.
const AuditTagPrefix = "evalgate.audit."

// AuditRecord is an immutable fact about a promote or rollback action.
type AuditRecord struct {
	ID          string      `json:"id"`
	Action      AuditAction `json:"action"`
	PromptName  string      `json:"prompt_name"`
	FromVersion int         `json:"from_version"`
	ToVersion   int         `json:"to_version"`
	Alias       string      `json:"alias"`
	Timestamp   time.Time   `json:"timestamp"`
	Actor       string      `json:"actor"`
	Reason      string      `json:"reason"`
	RunIDs      []string    `json:"run_ids"`
}

// Tags flattens the record into the string-keyed tag set stored on runs.
func (r AuditRecord) Tags() map[string]string {
	p := AuditTagPrefix + r.ID + "."
	return map[string]string{
		p + "action":       string(r.Action),
		p + "prompt_name":  r.PromptName,
		p + "from_version": strconv.Itoa(r.FromVersion),
		p + "to_version":   strconv.Itoa(r.ToVersion),
		p + "alias":        r.Alias,
		p + "timestamp":    r.Timestamp.UTC().Format(time.RFC3339),
		p + "actor":        r.Actor,
		p + "reason":       r.Reason,
		p + "run_ids":      strings.Join(r.RunIDs, ","),
	}
}

// AuditRecordsFromTags rebuilds the audit records stored in a run's tag set.
// Unparseable fields are left at their zero value.
func AuditRecordsFromTags(tags map[string]string) []AuditRecord {
	byID := map[string]*AuditRecord{}
	var order []string

	for key, value := range tags {
		rest, ok := strings.CutPrefix(key, AuditTagPrefix)
		if !ok {
			continue
		}
		id, field, ok := strings.Cut(rest, ".")
		if !ok || id == "" {
			continue
		}
		rec, seen := byID[id]
		if !seen {
			rec = &AuditRecord{ID: id}
			byID[id] = rec
			order = append(order, id)
		}
		switch field {
		case "action":
			rec.Action = AuditAction(value)
		case "prompt_name":
			rec.PromptName = value
		case "from_version":
			rec.FromVersion, _ = strconv.Atoi(value)
		case "to_version":
			rec.ToVersion, _ = strconv.Atoi(value)
		case "alias":
			rec.Alias = value
		case "timestamp":
			rec.Timestamp, _ = time.Parse(time.RFC3339, value)
		case "actor":
			rec.Actor = value
		case "reason":
			rec.Reason = value
		case "run_ids":
			if value != "" {
				rec.RunIDs = strings.Split(value, ",")
			}
		}
	}

	out := make([]AuditRecord, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sortRecordsByTime(out)
	return out
}

func sortRecordsByTime(records []AuditRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

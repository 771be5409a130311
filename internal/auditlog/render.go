package auditlog

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// tmpl renders format with each {key} replaced by entry.Data[key]. Missing keys render empty.
func tmpl(format string) renderFunc {
	return func(entry *models.AuditLogEntry) string {
		return fill(format, entry.Data)
	}
}

// fixed renders the same sentence for every entry
func fixed(message string) renderFunc {
	return func(*models.AuditLogEntry) string { return message }
}

func fill(format string, data map[string]interface{}) string {
	return placeholder.ReplaceAllStringFunc(format, func(m string) string {
		return lookup(data, m[1:len(m)-1])
	})
}

func lookup(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	return formatValue(v)
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// JSONB numbers come back as float64
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		return strings.Join(t, ", ")
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		return formatMap(t)
	case map[string]string:
		m := make(map[string]interface{}, len(t))
		for k, v := range t {
			m[k] = v
		}
		return formatMap(m)
	default:
		return fmt.Sprint(v)
	}
}

// formatMap renders a nested object as {k=v, ...} with keys sorted
func formatMap(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatValue(m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Change is the shape of an edit payload, chosen once from the stored data
type Change interface {
	isChange()
}

// Rename carries both the previous and the new value of a field
type Rename struct {
	Field string
	Old   string
	New   string
}

// FieldUpdate carries only the new value of a field
type FieldUpdate struct {
	Key   string
	Value string
}

// SettingsUpdate lists every changed setting, sorted by key
type SettingsUpdate struct {
	Settings []Setting
}

// Setting is one key/value pair of a SettingsUpdate
type Setting struct {
	Key   string
	Value string
}

func (Rename) isChange()         {}
func (FieldUpdate) isChange()    {}
func (SettingsUpdate) isChange() {}

// ClassifyChange inspects data for old_<field>/new_<field> and returns the matching variant
func ClassifyChange(data map[string]interface{}, field string) Change {
	oldKey, newKey := "old_"+field, "new_"+field
	oldVal, hasOld := data[oldKey]
	newVal, hasNew := data[newKey]
	hasOld = hasOld && oldVal != nil
	hasNew = hasNew && newVal != nil

	switch {
	case hasOld && hasNew:
		return Rename{Field: field, Old: formatValue(oldVal), New: formatValue(newVal)}
	case hasNew:
		return FieldUpdate{Key: newKey, Value: formatValue(newVal)}
	default:
		return SettingsUpdate{Settings: sortedSettings(data)}
	}
}

func sortedSettings(data map[string]interface{}) []Setting {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	settings := make([]Setting, 0, len(keys))
	for _, k := range keys {
		settings = append(settings, Setting{Key: k, Value: lookup(data, k)})
	}
	return settings
}

func renderProjectEdit(entry *models.AuditLogEntry) string {
	switch c := ClassifyChange(entry.Data, "slug").(type) {
	case Rename:
		return fmt.Sprintf("renamed project %s from %s to %s", c.Field, c.Old, c.New)
	case FieldUpdate:
		return fmt.Sprintf("edited project settings in %s to %s", c.Key, c.Value)
	case SettingsUpdate:
		var b strings.Builder
		b.WriteString("edited project settings")
		for _, s := range c.Settings {
			fmt.Fprintf(&b, " in %s to %s", s.Key, s.Value)
		}
		return b.String()
	}
	return "edited project settings"
}

func renderOrgEdit(entry *models.AuditLogEntry) string {
	settings := sortedSettings(entry.Data)
	if len(settings) == 0 {
		return "edited the organization"
	}
	parts := make([]string, len(settings))
	for i, s := range settings {
		parts[i] = fmt.Sprintf("%s to %s", s.Key, s.Value)
	}
	return "edited the organization setting(s): " + strings.Join(parts, ", ")
}

// byProvider picks the app-level template when the payload names a provider and the
// project-level template otherwise.
func byProvider(withProvider, withoutProvider string) renderFunc {
	return func(entry *models.AuditLogEntry) string {
		if lookup(entry.Data, "provider") != "" {
			return fill(withProvider, entry.Data)
		}
		return fill(withoutProvider, entry.Data)
	}
}

// bySelf picks the first-person template when the affected member is the actor
func bySelf(self, other string) renderFunc {
	return func(entry *models.AuditLogEntry) string {
		if entry.ActorID != nil && lookup(entry.Data, "member_id") == *entry.ActorID {
			return fill(self, entry.Data)
		}
		return fill(other, entry.Data)
	}
}

package audit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"uniledger/internal/domain"
)

// Query runs a paginated, filtered scan over the full log (spec.md
// §4.3 "Query semantics"). Filters compose with logical AND; cursor is
// a sequence number string marking where the previous page ended.
func (l *Log) Query(ctx context.Context, q domain.AuditQuery) (domain.AuditQueryResult, error) {
	entries, err := l.store.ScanAll(ctx)
	if err != nil {
		return domain.AuditQueryResult{}, fmt.Errorf("scan audit log: %w", err)
	}

	matched := make([]domain.AuditEntry, 0, len(entries))
	for _, e := range entries {
		if matches(e, q.Filter) {
			matched = append(matched, e)
		}
	}

	direction := q.Direction
	if direction == "" {
		direction = domain.DirectionDesc
	}

	if direction == domain.DirectionAsc {
		sort.Slice(matched, func(i, j int) bool { return matched[i].Sequence < matched[j].Sequence })
	} else {
		sort.Slice(matched, func(i, j int) bool { return matched[i].Sequence > matched[j].Sequence })
	}

	totalMatches := len(matched)

	page := matched
	if q.Cursor != "" {
		cursorSeq, err := strconv.ParseInt(q.Cursor, 10, 64)
		if err != nil {
			return domain.AuditQueryResult{}, fmt.Errorf("invalid cursor %q: %w", q.Cursor, err)
		}
		page = page[:0:0]
		for _, e := range matched {
			if direction == domain.DirectionAsc && e.Sequence > cursorSeq {
				page = append(page, e)
			}
			if direction == domain.DirectionDesc && e.Sequence < cursorSeq {
				page = append(page, e)
			}
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = len(page)
	}

	hasMore := len(page) > limit
	if hasMore {
		page = page[:limit]
	}

	var nextCursor string
	if hasMore && len(page) > 0 {
		nextCursor = strconv.FormatInt(page[len(page)-1].Sequence, 10)
	}

	var previousCursor string
	if q.Cursor != "" && len(page) > 0 {
		previousCursor = strconv.FormatInt(page[0].Sequence, 10)
	}

	return domain.AuditQueryResult{
		Entries:        page,
		TotalMatches:   totalMatches,
		NextCursor:     nextCursor,
		PreviousCursor: previousCursor,
		HasMore:        hasMore,
	}, nil
}

func matches(e domain.AuditEntry, f domain.AuditFilter) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.ActorType != "" && e.ActorType != f.ActorType {
		return false
	}
	if f.PatientID != "" && e.PatientID != f.PatientID {
		return false
	}
	if f.Resource != "" && e.Resource != f.Resource {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if len(f.Tags) > 0 && !hasAllTags(e.Tags, f.Tags) {
		return false
	}
	if f.Search != "" && !matchesSearch(e, f.Search) {
		return false
	}
	return true
}

func hasAllTags(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

func matchesSearch(e domain.AuditEntry, search string) bool {
	needle := strings.ToLower(search)
	haystack := strings.ToLower(strings.Join([]string{
		e.Details, metadataToString(e.Metadata), e.ActorID, e.Resource, e.BlockHash, e.PatientID,
	}, " "))
	return strings.Contains(haystack, needle)
}

func metadataToString(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(m[k])
		b.WriteString(" ")
	}
	return b.String()
}

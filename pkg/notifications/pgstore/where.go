package pgstore

import (
	"strconv"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// query accumulates positional arguments and AND-ed conditions.
type query struct {
	args  []any
	conds []string
}

// arg registers v and returns its placeholder.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) where(cond string) {
	q.conds = append(q.conds, cond)
}

func (q *query) clause() string {
	if len(q.conds) == 0 {
		return "TRUE"
	}
	return strings.Join(q.conds, " AND ")
}

func (q *query) filter(f notifications.Filter) {
	if len(f.IDs) > 0 {
		ids := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = id.String()
		}
		q.where("id = ANY(" + q.arg(ids) + "::uuid[])")
	}
	if f.ToUser > 0 {
		q.where("to_user = " + q.arg(f.ToUser))
	}
	if len(f.Events) > 0 {
		events := make([]int16, len(f.Events))
		for i, e := range f.Events {
			events[i] = int16(e)
		}
		q.where("event_type = ANY(" + q.arg(events) + "::smallint[])")
	}
	if f.ExceptEvent != notifications.EventUnknown {
		q.where("event_type <> " + q.arg(int16(f.ExceptEvent)))
	}
	if len(f.SourceRefs) > 0 {
		q.where("source_ref = ANY(" + q.arg(f.SourceRefs) + "::bigint[])")
	}
	if f.Course > 0 {
		q.where("course = " + q.arg(f.Course))
	}
}

const (
	maskEmail   = int16(notifications.BitEmail)
	maskAll     = int16(notifications.BitEmail | notifications.BitSent | notifications.BitRead | notifications.BitRemoved)
	maskSeen    = int16(notifications.BitRead | notifications.BitRemoved)
	maskRemoved = int16(notifications.BitRemoved)
)

// Digest-eligible: EMAIL set and nothing else.
var pendingCond = "(status & " + strconv.Itoa(int(maskAll)) + ") = " + strconv.Itoa(int(maskEmail))

var unseenCond = "(status & " + strconv.Itoa(int(maskSeen)) + ") = 0"

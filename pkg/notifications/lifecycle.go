package notifications

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Lifecycle updates only ever add status bits. They are best effort: failures
// are logged and never reach the caller, whose own action already succeeded.

// MarkRead marks the given notifications of a user as read.
func (m *Manager) MarkRead(ctx context.Context, userID int64, ids ...uuid.UUID) {
	if len(ids) == 0 || userID <= 0 {
		return
	}
	m.setBits(ctx, "mark_read", BitRead, Filter{ToUser: userID, IDs: ids})
}

// MarkReadBySource marks notifications about one source entity as read.
// userID <= 0 applies to every recipient.
func (m *Manager) MarkReadBySource(ctx context.Context, userID int64, event EventType, sourceRef int64) {
	if !event.Valid() {
		return
	}
	m.setBits(ctx, "mark_read_by_source", BitRead, Filter{
		ToUser:     userID,
		Events:     []EventType{event},
		SourceRefs: []int64{sourceRef},
	})
}

// MarkReadForCourse marks a user's notifications of one type in a course as read.
func (m *Manager) MarkReadForCourse(ctx context.Context, userID int64, event EventType, course int64) {
	if !event.Valid() || course <= 0 {
		return
	}
	m.setBits(ctx, "mark_read_for_course", BitRead, Filter{
		ToUser: userID,
		Events: []EventType{event},
		Course: course,
	})
}

// MarkAllRead marks every notification of a user as read.
func (m *Manager) MarkAllRead(ctx context.Context, userID int64) {
	if userID <= 0 {
		return
	}
	m.setBits(ctx, "mark_all_read", BitRead, Filter{ToUser: userID})
}

// MarkRemoved flags notifications whose source entities were deleted.
func (m *Manager) MarkRemoved(ctx context.Context, event EventType, sourceRefs ...int64) {
	if !event.Valid() || len(sourceRefs) == 0 {
		return
	}
	m.setBits(ctx, "mark_removed", BitRemoved, Filter{
		Events:     []EventType{event},
		SourceRefs: sourceRefs,
	})
}

// MarkRemovedForUser flags one recipient's notifications about a source
// entity the user can no longer reach.
func (m *Manager) MarkRemovedForUser(ctx context.Context, userID int64, event EventType, sourceRef int64) {
	if !event.Valid() || userID <= 0 {
		return
	}
	m.setBits(ctx, "mark_removed_for_user", BitRemoved, Filter{
		ToUser:     userID,
		Events:     []EventType{event},
		SourceRefs: []int64{sourceRef},
	})
}

// MarkRemovedForCourse flags every notification scoped to a deleted course
// except those of the except type, which stay valid without the course.
func (m *Manager) MarkRemovedForCourse(ctx context.Context, course int64, except EventType) {
	m.MarkRemovedForCourseUser(ctx, course, 0, except)
}

// MarkRemovedForCourseUser is MarkRemovedForCourse restricted to one
// recipient, used when the user leaves the course. userID <= 0 means all.
func (m *Manager) MarkRemovedForCourseUser(ctx context.Context, course, userID int64, except EventType) {
	if course <= 0 {
		return
	}
	m.setBits(ctx, "mark_removed_for_course", BitRemoved, Filter{
		Course:      course,
		ToUser:      userID,
		ExceptEvent: except,
	})
}

// MarkRemovedUnderPath flags notifications about files at or below a deleted folder.
func (m *Manager) MarkRemovedUnderPath(ctx context.Context, event EventType, container int64, pathPrefix string) {
	if !event.Valid() {
		return
	}
	if m.files == nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "Cannot cascade removal without a file index",
			logger.EventType(event.String()),
		)
		return
	}

	refs, err := m.storage.SourceRefs(ctx, event)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to list source references",
			logger.EventType(event.String()),
			logger.Error(err),
		)
		return
	}

	var matched []int64
	for _, ref := range refs {
		ok, err := m.files.IsUnderPath(ctx, container, ref, pathPrefix)
		if err != nil {
			m.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to resolve file path",
				logger.SourceRef(ref),
				logger.Error(err),
			)
			continue
		}
		if ok {
			matched = append(matched, ref)
		}
	}

	m.MarkRemoved(ctx, event, matched...)
}

func (m *Manager) setBits(ctx context.Context, op string, bit Bit, f Filter) {
	n, err := m.storage.SetBits(ctx, bit, f)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to update notification status",
			slog.String("operation", op),
			slog.String("bit", bit.String()),
			logger.UserID(userAttr(f.ToUser)),
			logger.Error(err),
		)
		return
	}
	m.logger.LogAttrs(ctx, slog.LevelDebug, "Updated notification status",
		slog.String("operation", op),
		slog.String("bit", bit.String()),
		slog.Int64("matched", n),
	)
}

func userAttr(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

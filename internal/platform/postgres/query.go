package postgres

import (
	"strconv"
	"strings"

	"github.com/phrazzld/tasklane-api/internal/store"
)

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []any
}

// arg registers v and returns its placeholder.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

// clause renders the WHERE clause, or "" when there are no conditions.
func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// taskWhere translates a filter into conditions over the tasks table.
func taskWhere(f store.TaskFilter) *whereBuilder {
	b := &whereBuilder{}
	if f.ProjectID != "" {
		b.add("project_id = " + b.arg(f.ProjectID))
	}
	if len(f.ProjectIDs) > 0 {
		b.add("project_id = ANY(" + b.arg(f.ProjectIDs) + ")")
	}
	if len(f.AssigneeIDs) > 0 {
		b.add("assignee_ids && " + b.arg(f.AssigneeIDs))
	}
	if len(f.StatusIDs) > 0 {
		b.add("task_status_id = ANY(" + b.arg(f.StatusIDs) + ")")
	}
	if f.DueDate.From != nil {
		b.add("due_date >= " + b.arg(*f.DueDate.From))
	}
	if f.DueDate.To != nil {
		b.add("due_date <= " + b.arg(*f.DueDate.To))
	}
	switch f.Done {
	case store.DoneYes:
		b.add("done = true")
	case store.DoneNo:
		b.add("done = false")
	}
	if f.Term != "" {
		b.add("title ILIKE " + b.arg("%"+likeEscaper.Replace(f.Term)+"%"))
	}
	return b
}

const taskColumns = `id, project_id, title, assignee_ids, start_date, due_date, task_status_id,
	done, priority, cover, created_at, created_by, updated_at, updated_by`

// selectTasksSQL builds the paged task query for f.
func selectTasksSQL(f store.TaskFilter) (string, []any) {
	b := taskWhere(f)
	var q strings.Builder
	q.WriteString("SELECT " + taskColumns + " FROM tasks")
	q.WriteString(b.clause())
	q.WriteString(" ORDER BY created_at DESC, id")
	if f.Take > 0 {
		q.WriteString(" LIMIT " + b.arg(f.Take))
	}
	if f.Skip > 0 {
		q.WriteString(" OFFSET " + b.arg(f.Skip))
	}
	return q.String(), b.args
}

// countTasksSQL builds the count query for f. Paging is ignored.
func countTasksSQL(f store.TaskFilter) (string, []any) {
	b := taskWhere(f)
	return "SELECT count(*) FROM tasks" + b.clause(), b.args
}

// selectStatusesSQL builds the status query for f.
func selectStatusesSQL(f store.StatusFilter) (string, []any) {
	b := &whereBuilder{}
	if len(f.ProjectIDs) > 0 {
		b.add("project_id = ANY(" + b.arg(f.ProjectIDs) + ")")
	}
	return "SELECT id, project_id, name, color, sort_order FROM task_statuses" +
		b.clause() + " ORDER BY project_id, sort_order, id", b.args
}

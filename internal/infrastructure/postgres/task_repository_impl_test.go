package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskboard/taskboard/internal/domain/repository"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{"%_", `\%\_`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeLike(tt.in), tt.in)
	}
}

func TestBuildWhereNumbersPlaceholders(t *testing.T) {
	f := repository.TaskFilter{
		Status:    "TODO",
		Priority:  "HIGH",
		Search:    "50%",
		VisibleTo: "u1",
	}
	where, args := buildWhere(f)

	assert.Equal(t,
		" WHERE t.status = $1 AND t.priority = $2 AND t.title ILIKE '%' || $3 || '%' AND (t.created_by = $4 OR t.assigned_to = $4)",
		where)
	assert.Equal(t, []any{f.Status, f.Priority, `50\%`, "u1"}, args)
}

func TestBuildWhereEmptyFilter(t *testing.T) {
	where, args := buildWhere(repository.TaskFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

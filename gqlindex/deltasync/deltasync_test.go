package deltasync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/ddbkeys/dynamodb/keycond"
)

func postRoutes(t *testing.T) Routes {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register("Post", "", "id", nil))
	require.NoError(t, r.Register("Post", "byBlog", "blogId", []string{"createdAt"}))
	require.NoError(t, r.Register("Post", "byAuthor", "authorId", []string{"kind", "date"}))
	return r.Freeze("Post")
}

func TestRegistry(t *testing.T) {
	routes := postRoutes(t)
	assert.Equal(t, map[string]string{
		"blogId+createdAt": "byBlog",
		"authorId+kind":    "byAuthor",
	}, routes.KeyIndexes)
	assert.Equal(t, map[string]string{"id": "", "blogId": "byBlog", "authorId": "byAuthor"}, routes.PartitionIndexes)
	assert.Contains(t, routes.SortFields, "")
	assert.Empty(t, routes.SortFields[""])
	assert.Equal(t, []string{"kind", "date"}, routes.SortFields["byAuthor"])
}

func TestRegistryLaterWins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Post", "first", "blogId", []string{"createdAt"}))
	require.NoError(t, r.Register("Post", "second", "blogId", []string{"createdAt"}))
	routes := r.Freeze("Post")
	assert.Equal(t, "second", routes.KeyIndexes["blogId+createdAt"])
	assert.Equal(t, "second", routes.PartitionIndexes["blogId"])
}

func TestRegistryFrozen(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Post", "", "id", nil))
	routes := r.Freeze("Post")
	err := r.Register("Post", "late", "blogId", nil)
	require.ErrorIs(t, err, ErrRegistryFrozen)
	assert.NotContains(t, routes.PartitionIndexes, "blogId")

	// other models are unaffected
	require.NoError(t, r.Register("Comment", "", "id", nil))
}

func TestFreezeReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Post", "byBlog", "blogId", []string{"createdAt"}))
	routes := r.Freeze("Post")
	routes.SortFields["byBlog"][0] = "mutated"
	assert.Equal(t, []string{"createdAt"}, r.Freeze("Post").SortFields["byBlog"])
}

func eq(field string, v any) map[string]any {
	return map[string]any{field: map[string]any{"eq": v}}
}

func TestDispatch(t *testing.T) {
	routes := postRoutes(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * time.Minute).UnixMilli()
	stale := now.Add(-2 * time.Hour).UnixMilli()

	tests := []struct {
		name    string
		req     Request
		want    Decision
		wantErr bool
	}{
		{
			name: "fresh sync always scans",
			req: Request{LastSync: &recent, Now: now, Filter: map[string]any{
				"and": []any{eq("blogId", "b1"), eq("createdAt", "2024")},
			}},
			want: Decision{Operation: OperationScan, Filter: map[string]any{
				"and": []any{eq("blogId", "b1"), eq("createdAt", "2024")},
			}},
		},
		{
			name: "leading partition and sort clauses query the index",
			req: Request{LastSync: &stale, Now: now, Filter: map[string]any{
				"and": []any{
					eq("blogId", "b1"),
					map[string]any{"createdAt": map[string]any{"gt": "2024-01"}},
					eq("status", "open"),
				},
				"title": map[string]any{"beginsWith": "x"},
			}},
			want: Decision{
				Operation:      OperationQuery,
				IndexName:      "byBlog",
				PartitionKey:   "blogId",
				PartitionValue: "b1",
				SortKey:        "createdAt",
				Sort:           keycond.Condition{Op: keycond.OpGt, Value: "2024-01"},
				Filter: map[string]any{
					"and":   []any{eq("status", "open")},
					"title": map[string]any{"beginsWith": "x"},
				},
			},
		},
		{
			name: "no lastSync behaves like a stale sync",
			req: Request{Now: now, Filter: map[string]any{
				"and": []any{eq("blogId", "b1"), eq("createdAt", "2024")},
			}},
			want: Decision{
				Operation: OperationQuery, IndexName: "byBlog",
				PartitionKey: "blogId", PartitionValue: "b1",
				SortKey: "createdAt", Sort: keycond.Condition{Op: keycond.OpEq, Value: "2024"},
			},
		},
		{
			name: "clause order matters",
			req: Request{Now: now, Filter: map[string]any{
				"and": []any{eq("createdAt", "2024"), eq("blogId", "b1")},
			}},
			want: Decision{Operation: OperationScan, Filter: map[string]any{
				"and": []any{eq("createdAt", "2024"), eq("blogId", "b1")},
			}},
		},
		{
			name: "only the first two clauses are considered",
			req: Request{Now: now, Filter: map[string]any{
				"and": []any{eq("status", "open"), eq("blogId", "b1"), eq("createdAt", "2024")},
			}},
			want: Decision{Operation: OperationScan, Filter: map[string]any{
				"and": []any{eq("status", "open"), eq("blogId", "b1"), eq("createdAt", "2024")},
			}},
		},
		{
			name: "partition clause must be eq",
			req: Request{Now: now, Filter: map[string]any{
				"and": []any{
					map[string]any{"blogId": map[string]any{"beginsWith": "b"}},
					eq("createdAt", "2024"),
				},
			}},
			want: Decision{Operation: OperationScan, Filter: map[string]any{
				"and": []any{
					map[string]any{"blogId": map[string]any{"beginsWith": "b"}},
					eq("createdAt", "2024"),
				},
			}},
		},
		{
			name: "single clause scans",
			req:  Request{Now: now, Filter: map[string]any{"and": []any{eq("blogId", "b1")}}},
			want: Decision{Operation: OperationScan, Filter: map[string]any{"and": []any{eq("blogId", "b1")}}},
		},
		{
			name: "eq on the leading field of a composite key becomes a prefix",
			req: Request{Now: now, Filter: map[string]any{
				"and": []any{eq("authorId", "a1"), eq("kind", 3.0)},
			}},
			want: Decision{
				Operation: OperationQuery, IndexName: "byAuthor",
				PartitionKey: "authorId", PartitionValue: "a1",
				SortKey: "kind#date", Sort: keycond.Condition{Op: keycond.OpBeginsWith, Value: "3#"},
			},
		},
		{
			name: "range on a composite leading field stays in the filter",
			req: Request{Now: now, Filter: map[string]any{
				"and": []any{eq("authorId", "a1"), map[string]any{"kind": map[string]any{"gt": 3.0}}},
			}},
			want: Decision{
				Operation: OperationQuery, IndexName: "byAuthor",
				PartitionKey: "authorId", PartitionValue: "a1",
				Filter: map[string]any{"and": []any{map[string]any{"kind": map[string]any{"gt": 3.0}}}},
			},
		},
		{
			name: "sort clause with two operators",
			req: Request{Now: now, Filter: map[string]any{
				"and": []any{eq("blogId", "b1"), map[string]any{"createdAt": map[string]any{"gt": "a", "lt": "b"}}},
			}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Dispatch(routes, tt.req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatchWindow(t *testing.T) {
	routes := postRoutes(t)
	now := time.Now().Truncate(time.Millisecond)
	filter := map[string]any{"and": []any{eq("blogId", "b1"), eq("createdAt", "x")}}

	edge := now.Add(-5 * time.Minute).UnixMilli()
	d, err := Dispatch(routes, Request{LastSync: &edge, Now: now, Filter: filter, Window: 5 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, OperationScan, d.Operation, "the window is inclusive")

	older := now.Add(-6 * time.Minute).UnixMilli()
	d, err = Dispatch(routes, Request{LastSync: &older, Now: now, Filter: filter, Window: 5 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, OperationQuery, d.Operation)
}

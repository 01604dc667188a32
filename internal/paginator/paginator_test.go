package paginator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPageSizes(t *testing.T) {
	items := numbers(13)

	tests := []struct {
		name   string
		raw    string
		number int
		length int
	}{
		{"first page", "1", 1, 10},
		{"second page holds the rest", "2", 2, 3},
		{"missing parameter", "", 1, 10},
		{"not a number", "abc", 1, 10},
		{"past the end", "99", 2, 3},
		{"zero", "0", 2, 3},
		{"negative", "-1", 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := FromSlice(items, tt.raw, 10)
			assert.Equal(t, tt.number, page.Number)
			assert.Len(t, page.Items, tt.length)
			assert.Equal(t, 2, page.NumPages)
		})
	}
}

func TestEmptyResultHasOnePage(t *testing.T) {
	page := FromSlice([]string{}, "5", 10)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.NumPages)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasOtherPages())
	assert.Equal(t, 0, page.StartIndex())
}

func TestNavigation(t *testing.T) {
	page := FromSlice(numbers(25), "2", 10)
	assert.True(t, page.HasPrevious())
	assert.True(t, page.HasNext())
	assert.Equal(t, 1, page.PreviousPageNumber())
	assert.Equal(t, 3, page.NextPageNumber())
	assert.Equal(t, []int{1, 2, 3}, page.PageRange())
	assert.Equal(t, 11, page.StartIndex())
	assert.Equal(t, 10, page.Items[0])
}

func TestPaginateFetchesOneWindow(t *testing.T) {
	var gotLimit, gotOffset, calls int
	page, err := Paginate(context.Background(), "3", 10,
		func(context.Context) (int, error) { return 23, nil },
		func(_ context.Context, limit, offset int) ([]string, error) {
			calls++
			gotLimit, gotOffset = limit, offset
			return []string{"a", "b", "c"}, nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 10, gotLimit)
	assert.Equal(t, 20, gotOffset)
	assert.Equal(t, 3, page.Number)
	assert.Len(t, page.Items, 3)
}

func TestPaginatePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Paginate(context.Background(), "1", 10,
		func(context.Context) (int, error) { return 0, boom },
		func(context.Context, int, int) ([]int, error) { return nil, nil },
	)
	assert.ErrorIs(t, err, boom)
}

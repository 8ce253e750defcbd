package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"postmatch/internal/models"
	"postmatch/internal/store/mocks"
)

var aggNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestAggregator(source *mocks.PostSource, minBatch int) *Aggregator {
	a := NewAggregator(source, DefaultMaxPostAge, minBatch)
	a.now = func() time.Time { return aggNow }
	return a
}

func postsFrom(prefix string, n int, age time.Duration) []models.Post {
	out := make([]models.Post, n)
	for i := range out {
		out[i] = models.Post{Code: fmt.Sprintf("%s%d", prefix, i), TakenAt: aggNow.Add(-age)}
	}
	return out
}

func codes(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Code)
	}
	return out
}

func TestAggregator_PagesUntilAmount(t *testing.T) {
	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 5, "").Return(postsFrom("a", 3, time.Hour), "c1", nil).Once()
	source.On("FetchPage", mock.Anything, "chef", 2, "c1").Return(postsFrom("b", 3, time.Hour), "c2", nil).Once()

	posts, err := newTestAggregator(source, DefaultMinBatch).Aggregate(context.Background(), "chef", 5, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "a1", "a2", "b0", "b1"}, codes(posts))
	source.AssertExpectations(t)
}

func TestAggregator_StopsOnLastPage(t *testing.T) {
	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 10, "").Return(postsFrom("a", 2, time.Hour), "", nil).Once()

	posts, err := newTestAggregator(source, DefaultMinBatch).Aggregate(context.Background(), "chef", 10, "")

	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestAggregator_StopAtCode(t *testing.T) {
	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 10, "").Return(postsFrom("a", 4, time.Hour), "c1", nil).Once()

	posts, err := newTestAggregator(source, DefaultMinBatch).Aggregate(context.Background(), "chef", 10, "a2")

	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "a1"}, codes(posts))
}

func TestAggregator_PinnedOldPostDoesNotStopEarly(t *testing.T) {
	old := models.Post{Code: "pinned", TakenAt: aggNow.AddDate(-5, 0, 0)}
	page := append([]models.Post{old}, postsFrom("a", 3, time.Hour)...)

	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 4, "").Return(page, "c1", nil).Once()

	posts, err := newTestAggregator(source, 2).Aggregate(context.Background(), "chef", 4, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"pinned", "a0", "a1", "a2"}, codes(posts))
}

func TestAggregator_OldPostAfterMinBatchStops(t *testing.T) {
	page := append(postsFrom("a", 3, time.Hour), postsFrom("old", 2, 3*365*24*time.Hour)...)

	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 10, "").Return(page, "c1", nil).Once()

	posts, err := newTestAggregator(source, 2).Aggregate(context.Background(), "chef", 10, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "a1", "a2"}, codes(posts))
	source.AssertNumberOfCalls(t, "FetchPage", 1)
}

func TestAggregator_FetchError(t *testing.T) {
	source := new(mocks.PostSource)
	source.On("FetchPage", mock.Anything, "chef", 3, "").Return(nil, "", errors.New("rate limited")).Once()

	_, err := newTestAggregator(source, DefaultMinBatch).Aggregate(context.Background(), "chef", 3, "")
	assert.Error(t, err)
}

func TestAggregator_NonPositiveAmount(t *testing.T) {
	source := new(mocks.PostSource)
	posts, err := newTestAggregator(source, DefaultMinBatch).Aggregate(context.Background(), "chef", 0, "")
	assert.NoError(t, err)
	assert.Empty(t, posts)
	source.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

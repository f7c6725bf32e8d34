package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/mosaic/backend/models"
)

func newTestCache(t *testing.T) *StoryCache {
	t.Helper()
	cache, err := OpenStoryCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func testStories() []models.StoryRecord {
	return []models.StoryRecord{
		{
			ID:          101,
			Title:       "Crossing the Border at Night",
			Description: "An immigrant mother recalls arriving with nothing but hope.",
			Keywords:    []string{"immigration", "family", "hope"},
			Location:    models.Location{Region: "Texas", Country: "United States"},
			URL:         "https://archive.example/stories/101",
			AudioURL:    "https://archive.example/audio/101.mp3",
		},
		{
			ID:          102,
			Title:       "The Last Harvest",
			Description: "A farmer describes losing the family land after three generations.",
			Keywords:    []string{"loss", "work", "land"},
			Location:    models.Location{Region: "Iowa", Country: "United States"},
		},
	}
}

func TestSaveAndSearchStories(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveStories(testStories()))

	found, err := cache.SearchStories("immigration", "", 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 101, found[0].ID)
	assert.Equal(t, "Crossing the Border at Night", found[0].Title)
	assert.Equal(t, []string{"immigration", "family", "hope"}, found[0].Keywords)
	assert.Equal(t, "Texas", found[0].Location.Region)
}

func TestSearchStoriesMatchesDescription(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveStories(testStories()))

	found, err := cache.SearchStories("generations", "", 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 102, found[0].ID)
}

func TestSearchStoriesLocationFilter(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveStories(testStories()))

	found, err := cache.SearchStories("family", "Iowa", 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 102, found[0].ID)
}

func TestSearchStoriesNoMatch(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveStories(testStories()))

	found, err := cache.SearchStories("astronauts", "", 20)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSaveStoriesUpserts(t *testing.T) {
	cache := newTestCache(t)
	stories := testStories()
	require.NoError(t, cache.SaveStories(stories))

	stories[0].Title = "Crossing the Border (Updated)"
	require.NoError(t, cache.SaveStories(stories[:1]))

	found, err := cache.SearchStories("immigration", "", 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Crossing the Border (Updated)", found[0].Title)
}

func TestSaveStoriesEmptySliceIsNoop(t *testing.T) {
	cache := newTestCache(t)
	assert.NoError(t, cache.SaveStories(nil))
}

func TestSaveAndListCollections(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveCollection("border stories", []int{101, 102}))

	collections, err := cache.ListCollections()
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, "border stories", collections[0].Name)
	assert.Equal(t, []int{101, 102}, collections[0].StoryIDs)
	assert.NotEmpty(t, collections[0].CreatedAt)
}

func TestSaveCollectionReplacesSameName(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveCollection("favorites", []int{1}))
	require.NoError(t, cache.SaveCollection("favorites", []int{1, 2, 3}))

	collections, err := cache.ListCollections()
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, []int{1, 2, 3}, collections[0].StoryIDs)
}

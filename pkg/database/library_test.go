package database

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

func libraryTrack(id string) lavalink.Track {
	return lavalink.Track{
		Encoded: "enc:" + id,
		Info: lavalink.TrackInfo{
			Identifier: id,
			Title:      "title " + id,
			Author:     "author",
			URI:        "https://tracks.example.com/" + id,
		},
	}
}

func TestLikeTrackRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.LikeTrack("guild-1", "user-1", libraryTrack("a")))
	require.NoError(t, store.LikeTrack("guild-1", "user-1", libraryTrack("b")))
	// Re-liking is a no-op, not an error.
	require.NoError(t, store.LikeTrack("guild-1", "user-1", libraryTrack("a")))

	liked, err := store.LikedTracks("guild-1", "user-1")
	require.NoError(t, err)
	require.Len(t, liked, 2)
	assert.Equal(t, "enc:"+liked[0].Identifier, liked[0].Track.Encoded)
	assert.Equal(t, "title "+liked[1].Identifier, liked[1].Track.Info.Title)
}

func TestLikedTracksScopedPerUser(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.LikeTrack("guild-1", "user-1", libraryTrack("a")))
	require.NoError(t, store.LikeTrack("guild-1", "user-2", libraryTrack("b")))
	require.NoError(t, store.LikeTrack("guild-2", "user-1", libraryTrack("c")))

	liked, err := store.LikedTracks("guild-1", "user-1")
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, "a", liked[0].Identifier)
}

func TestUnlikeAndClearLiked(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.LikeTrack("guild-1", "user-1", libraryTrack("a")))
	require.NoError(t, store.LikeTrack("guild-1", "user-1", libraryTrack("b")))

	removed, err := store.UnlikeTrack("guild-1", "user-1", "a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.UnlikeTrack("guild-1", "user-1", "missing")
	require.NoError(t, err)
	assert.False(t, removed)

	cleared, err := store.ClearLiked("guild-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	liked, err := store.LikedTracks("guild-1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestLikedTracksCapEvictsOldest(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < MaxLikedPerUser+5; i++ {
		id := fmt.Sprintf("track-%04d", i)
		require.NoError(t, store.LikeTrack("guild-1", "user-1", libraryTrack(id)))
	}

	liked, err := store.LikedTracks("guild-1", "user-1")
	require.NoError(t, err)
	assert.Len(t, liked, MaxLikedPerUser)
}

func TestPlaylistLifecycle(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.CreatePlaylist("guild-1", "user-1", "chill"))
	assert.ErrorIs(t, store.CreatePlaylist("guild-1", "user-1", "chill"), ErrPlaylistExists)
	// Same name under a different owner is a different playlist.
	require.NoError(t, store.CreatePlaylist("guild-1", "user-2", "chill"))

	added, err := store.AddPlaylistTrack("guild-1", "user-1", "chill",
		libraryTrack("a"), libraryTrack("b"), libraryTrack("c"))
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	lists, err := store.Playlists("guild-1", "user-1")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "chill", lists[0].Name)
	assert.Equal(t, 3, lists[0].ItemCount)

	tracks, err := store.PlaylistTracks("guild-1", "user-1", "chill")
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "a", tracks[0].Info.Identifier)
	assert.Equal(t, "c", tracks[2].Info.Identifier)

	require.NoError(t, store.DeletePlaylist("guild-1", "user-1", "chill"))
	_, err = store.PlaylistTracks("guild-1", "user-1", "chill")
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestPlaylistRemoveCompactsPositions(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.CreatePlaylist("guild-1", "user-1", "mix"))
	_, err := store.AddPlaylistTrack("guild-1", "user-1", "mix",
		libraryTrack("a"), libraryTrack("b"), libraryTrack("c"))
	require.NoError(t, err)

	require.NoError(t, store.RemovePlaylistTrack("guild-1", "user-1", "mix", 2))

	tracks, err := store.PlaylistTracks("guild-1", "user-1", "mix")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "a", tracks[0].Info.Identifier)
	assert.Equal(t, "c", tracks[1].Info.Identifier)

	// The gap closed, so appending lands right after the survivors.
	_, err = store.AddPlaylistTrack("guild-1", "user-1", "mix", libraryTrack("d"))
	require.NoError(t, err)
	tracks, err = store.PlaylistTracks("guild-1", "user-1", "mix")
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "d", tracks[2].Info.Identifier)

	assert.Error(t, store.RemovePlaylistTrack("guild-1", "user-1", "mix", 9))
}

func TestPlaylistCapRejectsOverflow(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.CreatePlaylist("guild-1", "user-1", "big"))
	batch := make([]lavalink.Track, MaxPlaylistItems)
	for i := range batch {
		batch[i] = libraryTrack(fmt.Sprintf("track-%04d", i))
	}
	added, err := store.AddPlaylistTrack("guild-1", "user-1", "big", batch...)
	require.NoError(t, err)
	assert.Equal(t, MaxPlaylistItems, added)

	_, err = store.AddPlaylistTrack("guild-1", "user-1", "big", libraryTrack("extra"))
	assert.ErrorIs(t, err, ErrPlaylistFull)
}

func TestPlaylistDeleteCascadesItems(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.CreatePlaylist("guild-1", "user-1", "mix"))
	_, err := store.AddPlaylistTrack("guild-1", "user-1", "mix", libraryTrack("a"))
	require.NoError(t, err)
	require.NoError(t, store.DeletePlaylist("guild-1", "user-1", "mix"))

	// Recreating the name starts empty; the cascade removed the old items.
	require.NoError(t, store.CreatePlaylist("guild-1", "user-1", "mix"))
	tracks, err := store.PlaylistTracks("guild-1", "user-1", "mix")
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUniqueName(t *testing.T) {
	existing := map[string]struct{}{}
	assert.Equal(t, "photo.jpg", UniqueName(existing, "photo.jpg"))

	existing["photo.jpg"] = struct{}{}
	assert.Equal(t, "photo_2.jpg", UniqueName(existing, "photo.jpg"))
	assert.Len(t, existing, 1, "existing must not be modified")

	existing["photo_2.jpg"] = struct{}{}
	existing["photo_3.jpg"] = struct{}{}
	assert.Equal(t, "photo_4.jpg", UniqueName(existing, "photo.jpg"))
}

func TestUniqueNameWithoutExtension(t *testing.T) {
	existing := map[string]struct{}{"README": {}, ".hidden": {}}
	assert.Equal(t, "README_2", UniqueName(existing, "README"))
	assert.Equal(t, ".hidden_2", UniqueName(existing, ".hidden"))
}

func TestEntryNames(t *testing.T) {
	got := EntryNames([]string{"a.jpg", "a.jpg", "b.png", "a.jpg"})
	assert.Equal(t, []string{"a.jpg", "a_2.jpg", "b.png", "a_3.jpg"}, got)

	// a literal "a_2.jpg" later in the list must not collide with the renamed entry
	got = EntryNames([]string{"a.jpg", "a.jpg", "a_2.jpg"})
	assert.Equal(t, []string{"a.jpg", "a_2.jpg", "a_2_2.jpg"}, got)
}

func TestArchiveName(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "family_photos_20240309_070501.zip", ArchiveName(ArchivePrefix, at))
	assert.Equal(t, "new_family_photos_20240309_070501.zip", ArchiveName(PendingArchivePrefix, at))
}

// Package picker backs the image picker panel: the library of available
// images and the ordered multi-selection the drag engine builds its payload
// from.
package picker

import (
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/daybookhq/daybook/internal/model"
)

var pickerLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	pickerLogger = l
}

// Library is the image catalog behind the picker. List is ordered newest
// first, which is also the gallery order selections report. Usage counts
// how many placements each image currently has across entries; the editor
// keeps it current as drops and removals happen.
type Library interface {
	Init()
	Get(id model.ImageID) (model.Image, bool)
	List() []model.Image
	Usage() map[model.ImageID]int
	RecordUse(id model.ImageID, delta int)

	// SetReloadNotifier sets a function that will be called when the
	// library contents change behind the server's back.
	SetReloadNotifier(notifier func())
}

// sortGallery orders images newest first. The id tiebreak keeps the
// gallery order stable when several images share a timestamp.
func sortGallery(images []model.Image) {
	slices.SortStableFunc(images, func(a, b model.Image) int {
		if c := -a.CreatedDate.Compare(b.CreatedDate); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
}

package model

import "time"

type ImageID string

// Image is a library image that can be placed into entries. The id is the
// stable identity carried by every wrapper in entry markup; the URL may be
// re-signed or migrated without touching stored entries.
type Image struct {
	ID ImageID

	SourceURL string
	AltText   string
	Caption   string

	CreatedDate time.Time

	Owner UserID
}

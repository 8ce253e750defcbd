package services

import (
	"fmt"
	"time"

	"postmatch/internal/models"
)

const (
	MediaTypeVideo    = "VIDEO"
	MediaTypeImage    = "IMAGE"
	MediaTypeCarousel = "CAROUSEL_ALBUM"
)

// Permalink is the public URL of a post.
func Permalink(username, code string) string {
	return fmt.Sprintf("https://www.instagram.com/%s/p/%s/", username, code)
}

func buildMedia(videoURL, thumbnailURL string, carousel bool) models.PostMedia {
	m := models.PostMedia{MediaURL: thumbnailURL, MediaType: MediaTypeImage}
	if videoURL != "" {
		thumb := thumbnailURL
		m.MediaURL = videoURL
		m.VideoMediaThumbnailURL = &thumb
		m.MediaType = MediaTypeVideo
	}
	if carousel {
		m.MediaType = MediaTypeCarousel
	}
	return m
}

// BuildPayload converts a post into its ingestion payload. Carousel posts use
// their first resource as the main media and the rest as secondary media.
func BuildPayload(username string, post models.Post) models.PostPayload {
	var (
		main      models.PostMedia
		secondary []models.PostMedia
	)
	if len(post.Resources) > 0 {
		first := post.Resources[0]
		main = buildMedia(first.VideoURL, first.ThumbnailURL, true)
		for _, r := range post.Resources[1:] {
			secondary = append(secondary, buildMedia(r.VideoURL, r.ThumbnailURL, false))
		}
	} else {
		main = buildMedia(post.VideoURL, post.ThumbnailURL, false)
	}

	return models.PostPayload{
		DataSource: models.PostDataSource{
			LiveSourceUID:  post.Code,
			SourceUID:      post.Code,
			Caption:        post.Caption,
			Permalink:      Permalink(username, post.Code),
			CreationDate:   post.TakenAt.UTC().Format(time.RFC3339),
			Media:          main,
			SecondaryMedia: secondary,
		},
	}
}

// BuildClassifiedPayload adds the accepted places of row to the post payload.
func BuildClassifiedPayload(username string, post models.Post, row *models.ClassifiedRow) models.PostPayload {
	p := BuildPayload(username, post)
	p.GooglePlaceIDs = make([]string, 0, len(row.Accepted))
	for _, m := range row.Accepted {
		p.GooglePlaceIDs = append(p.GooglePlaceIDs, m.PlaceID)
		if m.Handle != "" {
			p.GPIDToInstagramHandleMappings = append(p.GPIDToInstagramHandleMappings, models.PlaceHandleMapping{
				GooglePlaceID:   m.PlaceID,
				InstagramHandle: m.Handle,
			})
		}
	}
	return p
}

package publish

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Visibility is the privacy status of an uploaded video
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
)

func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityPrivate, VisibilityUnlisted:
		return Visibility(s), nil
	default:
		return "", fmt.Errorf(
			"unsupported visibility %q: use public, private, or unlisted",
			s,
		)
	}
}

// Metadata describes one video to publish
type Metadata struct {
	FilePath      string
	Title         string
	Description   string
	Tags          []string
	ThumbnailPath string // optional
	PlaylistID    string // optional
	Visibility    Visibility
	AudioLanguage string // ISO 639-1 code of the narration lead language
}

func (m Metadata) validate() error {
	if m.FilePath == "" {
		return fmt.Errorf("video file path is required")
	}
	if _, err := os.Stat(m.FilePath); err != nil {
		return fmt.Errorf("video file not found: %s", m.FilePath)
	}
	if m.Title == "" {
		return fmt.Errorf("title is required")
	}
	if m.Visibility == "" {
		return fmt.Errorf("visibility is required")
	}
	return nil
}

// UploadError reports a rejected publish attempt. The video file on
// disk is untouched; the upload can be retried without regenerating.
type UploadError struct {
	Title string
	Step  string // "insert", "thumbnail", or "playlist"
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %q failed at %s: %v", e.Title, e.Step, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// "Education"
const categoryEducation = "27"

// Uploader publishes finished videos to YouTube
type Uploader struct {
	service *youtube.Service
}

// NewUploader builds an uploader from OAuth client secrets. The
// installed-app flow runs on first use and caches its token in
// tokenPath for later runs.
func NewUploader(ctx context.Context, secretsPath, tokenPath string) (*Uploader, error) {
	client, err := oauthClient(ctx, secretsPath, tokenPath)
	if err != nil {
		return nil, err
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}

	return &Uploader{service: service}, nil
}

// Upload publishes one video and returns the platform-assigned video
// ID. The thumbnail and playlist steps run only when configured; a
// failure in either still reports the already-assigned ID through the
// returned UploadError's context.
func (u *Uploader) Upload(ctx context.Context, meta Metadata) (string, error) {
	if err := meta.validate(); err != nil {
		return "", &UploadError{Title: meta.Title, Step: "insert", Err: err}
	}

	audioLanguage := meta.AudioLanguage
	if audioLanguage == "" {
		audioLanguage = "en"
	}

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			CategoryId:           categoryEducation,
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			DefaultAudioLanguage: audioLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:   string(meta.Visibility),
			MadeForKids:     false,
			ForceSendFields: []string{"MadeForKids"},
		},
	}

	f, err := os.Open(meta.FilePath)
	if err != nil {
		return "", &UploadError{Title: meta.Title, Step: "insert", Err: err}
	}
	defer f.Close()

	call := u.service.Videos.Insert([]string{"snippet", "status"}, upload)
	response, err := call.Media(f).Context(ctx).Do()
	if err != nil {
		return "", &UploadError{Title: meta.Title, Step: "insert", Err: err}
	}
	videoID := response.Id

	if meta.ThumbnailPath != "" {
		if err := u.setThumbnail(ctx, videoID, meta.ThumbnailPath); err != nil {
			return videoID, &UploadError{Title: meta.Title, Step: "thumbnail", Err: err}
		}
	}

	if meta.PlaylistID != "" {
		if err := u.addToPlaylist(ctx, videoID, meta.PlaylistID); err != nil {
			return videoID, &UploadError{Title: meta.Title, Step: "playlist", Err: err}
		}
	}

	return videoID, nil
}

func (u *Uploader) setThumbnail(ctx context.Context, videoID, thumbnailPath string) error {
	f, err := os.Open(thumbnailPath)
	if err != nil {
		return fmt.Errorf("failed to open thumbnail: %w", err)
	}
	defer f.Close()

	_, err = u.service.Thumbnails.Set(videoID).Media(f).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to set thumbnail: %w", err)
	}
	return nil
}

func (u *Uploader) addToPlaylist(ctx context.Context, videoID, playlistID string) error {
	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}

	_, err := u.service.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add video to playlist: %w", err)
	}
	return nil
}

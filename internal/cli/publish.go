package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbuchert/wortklang/internal/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload a combined video to YouTube",
	Long: `Upload a combined video to YouTube.

Authenticates with OAuth: the first run opens a consent URL and asks for
the authorization code, then caches the refresh token next to the
working directory so later runs need no interaction.

The video file is never deleted, even when the upload fails partway
through. A failed thumbnail or playlist step still leaves the video
uploaded; the command reports the video ID either way.

Examples:
  wortklang publish -f videos/combined_video_1_4slides_source_target.mp4 --title "A1 Verbs, Part 1"
  wortklang publish -f video.mp4 --title "A1 Verbs" --visibility public --tags german,vocabulary
  wortklang publish -f video.mp4 --title "A1 Verbs" --playlist PLxxxx --thumbnail thumb.png`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().
		StringP("file", "f", "", "Video file to upload (required)")
	publishCmd.Flags().
		String("title", "", "Video title (required)")
	publishCmd.Flags().
		String("description", "", "Video description")
	publishCmd.Flags().
		StringSlice("tags", nil, "Comma-separated video tags")
	publishCmd.Flags().
		String("thumbnail", "", "Thumbnail image to set after upload")
	publishCmd.Flags().
		String("playlist", "", "Playlist ID to add the video to after upload")
	publishCmd.Flags().
		String("visibility", "private", "Video visibility (private, unlisted, public)")
	publishCmd.Flags().
		String("audio-language", "de", "ISO 639-1 code of the narration lead language")
	publishCmd.Flags().
		String("secrets", "client_secret.json", "OAuth client secrets file")
	publishCmd.Flags().
		String("token", ".youtube_token.json", "Cached OAuth token file")

	_ = publishCmd.MarkFlagRequired("file")
	_ = publishCmd.MarkFlagRequired("title")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	visibilityStr, _ := cmd.Flags().GetString("visibility")
	visibility, err := publish.ParseVisibility(visibilityStr)
	if err != nil {
		return err
	}

	meta := publish.Metadata{Visibility: visibility}
	meta.FilePath, _ = cmd.Flags().GetString("file")
	meta.Title, _ = cmd.Flags().GetString("title")
	meta.Description, _ = cmd.Flags().GetString("description")
	meta.Tags, _ = cmd.Flags().GetStringSlice("tags")
	meta.ThumbnailPath, _ = cmd.Flags().GetString("thumbnail")
	meta.PlaylistID, _ = cmd.Flags().GetString("playlist")
	meta.AudioLanguage, _ = cmd.Flags().GetString("audio-language")

	secretsPath, _ := cmd.Flags().GetString("secrets")
	tokenPath, _ := cmd.Flags().GetString("token")

	uploader, err := publish.NewUploader(ctx, secretsPath, tokenPath)
	if err != nil {
		return err
	}

	videoID, err := uploader.Upload(ctx, meta)
	if err != nil {
		var uploadErr *publish.UploadError
		if errors.As(err, &uploadErr) && videoID != "" {
			// the video itself made it up; only a follow-up step failed
			logger.Warnw("Upload finished with errors",
				"videoId", videoID,
				"step", uploadErr.Step,
				"error", uploadErr.Err)
			fmt.Printf("Uploaded with errors: https://youtu.be/%s\n", videoID)
			return nil
		}
		return fmt.Errorf("upload failed, video file kept at %s: %w", meta.FilePath, err)
	}

	fmt.Printf("Uploaded: https://youtu.be/%s\n", videoID)
	return nil
}

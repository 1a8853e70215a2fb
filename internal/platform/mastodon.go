package platform

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mattn/go-mastodon"

	"solarscout/internal/logging"
	"solarscout/internal/models"
)

// MastodonClient opens token-authenticated sessions against a Mastodon
// instance using the go-mastodon client.
type MastodonClient struct{}

// NewMastodonClient creates a new Mastodon client.
func NewMastodonClient() *MastodonClient {
	return &MastodonClient{}
}

// Kind implements Client.
func (c *MastodonClient) Kind() models.PlatformKind {
	return models.PlatformMastodon
}

// Authenticate verifies the access token against the instance and returns
// a posting session.
func (c *MastodonClient) Authenticate(ctx context.Context, creds models.Credentials) (Session, error) {
	if creds.Server == "" || creds.AccessToken == "" {
		return nil, fmt.Errorf("mastodon client not authenticated: missing server or access token")
	}

	client := mastodon.NewClient(&mastodon.Config{
		Server:      creds.Server,
		AccessToken: creds.AccessToken,
	})

	account, err := client.GetAccountCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("mastodon credential verification failed: %w", err)
	}
	logging.Info("Mastodon authenticated at %s as @%s", creds.Server, account.Acct)

	return &mastodonSession{client: client}, nil
}

type mastodonSession struct {
	client *mastodon.Client
}

// UploadImage uploads media and returns the attachment reference.
func (s *mastodonSession) UploadImage(ctx context.Context, img models.Image) (ImageRef, error) {
	logging.Info("Uploading media to Mastodon, size: %d", len(img.Data))

	media := mastodon.Media{
		File:        bytes.NewReader(img.Data),
		Description: img.AltText,
	}
	attachment, err := s.client.UploadMediaFromMedia(ctx, &media)
	if err != nil {
		return nil, fmt.Errorf("failed to upload media to Mastodon: %w", err)
	}

	logging.Info("Media uploaded successfully to Mastodon: ID %s, URL: %s", attachment.ID, attachment.URL)
	return attachment, nil
}

// CreatePost creates a new status (toot), threaded when reply is set.
func (s *mastodonSession) CreatePost(ctx context.Context, text string, image ImageRef, reply *ReplyRef) (PostRef, error) {
	toot := &mastodon.Toot{
		Status:     text,
		Visibility: mastodon.VisibilityPublic,
	}

	if reply != nil {
		toot.InReplyToID = mastodon.ID(reply.Parent.ID)
		logging.Info("Posting as reply to Mastodon status ID: %s", reply.Parent.ID)
	}

	if image != nil {
		attachment, ok := image.(*mastodon.Attachment)
		if !ok {
			return PostRef{}, fmt.Errorf("image ref is not a mastodon attachment, got %T", image)
		}
		toot.MediaIDs = []mastodon.ID{attachment.ID}
	}

	status, err := s.client.PostStatus(ctx, toot)
	if err != nil {
		return PostRef{}, fmt.Errorf("failed to post status to Mastodon: %w", err)
	}

	logging.Info("Successfully posted status to Mastodon: ID %s, URL: %s", status.ID, status.URL)
	return PostRef{ID: string(status.ID)}, nil
}

// Package platform defines the capability interface the publisher posts
// through, plus its Bluesky and Mastodon implementations.
package platform

import (
	"context"

	"solarscout/internal/models"
)

// PostRef identifies a post created on a platform. ID is the canonical
// remote identifier; URI/CID are additionally populated for Bluesky,
// where a reply reference needs both.
type PostRef struct {
	ID  string
	URI string
	CID string
}

// ReplyRef links a new post into an existing thread. Root is the first
// post of the thread, Parent the immediate predecessor.
type ReplyRef struct {
	Root   PostRef
	Parent PostRef
}

// ImageRef is an opaque handle to an uploaded image, produced and
// consumed by the same session.
type ImageRef interface{}

// Session is an authenticated connection to one platform.
type Session interface {
	// UploadImage uploads image bytes and returns a reference usable in
	// a subsequent CreatePost on the same session.
	UploadImage(ctx context.Context, img models.Image) (ImageRef, error)
	// CreatePost publishes a text post, optionally with an uploaded
	// image and threaded under reply, returning the remote reference.
	CreatePost(ctx context.Context, text string, image ImageRef, reply *ReplyRef) (PostRef, error)
}

// Client opens authenticated sessions for one platform kind.
type Client interface {
	Kind() models.PlatformKind
	Authenticate(ctx context.Context, creds models.Credentials) (Session, error)
}

// Registry maps platform kinds to their clients.
type Registry map[models.PlatformKind]Client

// NewRegistry builds the default client registry.
func NewRegistry() Registry {
	return Registry{
		models.PlatformBluesky:  NewBlueskyClient(""),
		models.PlatformMastodon: NewMastodonClient(),
	}
}

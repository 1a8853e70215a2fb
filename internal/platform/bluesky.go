package platform

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"solarscout/internal/logging"
	"solarscout/internal/models"
)

const defaultPDS = "https://bsky.social" // Default PDS host

var (
	hashtagRegex = regexp.MustCompile(`#\w+`)
	linkRegex    = regexp.MustCompile(`(?i)\b(https?://[^\s<>"')]+)`)
)

// BlueskyClient opens sessions against a Bluesky PDS via the indigo
// XRPC client.
type BlueskyClient struct {
	pds string
}

// NewBlueskyClient creates a Bluesky client. An empty pds selects the
// default PDS host.
func NewBlueskyClient(pds string) *BlueskyClient {
	if pds == "" {
		pds = defaultPDS
	}
	return &BlueskyClient{pds: pds}
}

// Kind implements Client.
func (c *BlueskyClient) Kind() models.PlatformKind {
	return models.PlatformBluesky
}

// Authenticate creates a session with the PDS using identifier and app
// password.
func (c *BlueskyClient) Authenticate(ctx context.Context, creds models.Credentials) (Session, error) {
	logging.Info("Authenticating Bluesky client for user: %s", creds.Identifier)

	client := &xrpc.Client{Host: c.pds}
	sess, err := comatproto.ServerCreateSession(ctx, client, &comatproto.ServerCreateSession_Input{
		Identifier: creds.Identifier,
		Password:   creds.AppPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("bluesky authentication failed: %w", err)
	}

	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  sess.AccessJwt,
		RefreshJwt: sess.RefreshJwt,
		Handle:     sess.Handle,
		Did:        sess.Did,
	}
	logging.Info("Bluesky authentication successful for user: %s (DID: %s)", sess.Handle, sess.Did)

	return &blueskySession{client: client}, nil
}

type blueskySession struct {
	client *xrpc.Client
}

// blueskyImageRef pairs the uploaded blob with its alt text for embedding.
type blueskyImageRef struct {
	blob *lexutil.LexBlob
	alt  string
}

// UploadImage uploads image bytes as a blob and returns its reference.
func (s *blueskySession) UploadImage(ctx context.Context, img models.Image) (ImageRef, error) {
	logging.Info("Uploading blob to Bluesky, size: %d, content-type: %s", len(img.Data), img.ContentType)

	resp, err := comatproto.RepoUploadBlob(ctx, s.client, bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob to Bluesky: %w", err)
	}
	if resp.Blob == nil || resp.Blob.Ref.String() == "" {
		return nil, fmt.Errorf("bluesky blob upload returned no reference")
	}

	logging.Info("Blob uploaded successfully to Bluesky: CID %s", resp.Blob.Ref.String())
	return &blueskyImageRef{blob: resp.Blob, alt: img.AltText}, nil
}

// CreatePost creates a new post (skeet), optionally threaded and with an
// image embed.
func (s *blueskySession) CreatePost(ctx context.Context, text string, image ImageRef, reply *ReplyRef) (PostRef, error) {
	post := &appbsky.FeedPost{
		LexiconTypeID: "app.bsky.feed.post",
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Text:          text,
		Facets:        detectFacets(text),
	}

	if image != nil {
		ref, ok := image.(*blueskyImageRef)
		if !ok {
			return PostRef{}, fmt.Errorf("image ref is not a bluesky blob, got %T", image)
		}
		post.Embed = &appbsky.FeedPost_Embed{
			EmbedImages: &appbsky.EmbedImages{
				Images: []*appbsky.EmbedImages_Image{
					{Alt: ref.alt, Image: ref.blob},
				},
			},
		}
	}

	if reply != nil {
		post.Reply = &appbsky.FeedPost_ReplyRef{
			Root:   &comatproto.RepoStrongRef{Uri: reply.Root.URI, Cid: reply.Root.CID},
			Parent: &comatproto.RepoStrongRef{Uri: reply.Parent.URI, Cid: reply.Parent.CID},
		}
		logging.Info("Posting Bluesky reply with Root: %s, Parent: %s", reply.Root.URI, reply.Parent.URI)
	}

	res, err := comatproto.RepoCreateRecord(ctx, s.client, &comatproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       s.client.Auth.Did,
		Record:     &lexutil.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		return PostRef{}, fmt.Errorf("failed to create Bluesky post: %w", err)
	}

	logging.Info("Successfully posted to Bluesky: URI %s, CID %s", res.Uri, res.Cid)
	return PostRef{ID: res.Uri, URI: res.Uri, CID: res.Cid}, nil
}

// detectFacets finds hashtags and links in text and converts them to
// Bluesky richtext facets. Offsets are byte positions, as the lexicon
// requires.
func detectFacets(text string) []*appbsky.RichtextFacet {
	var facets []*appbsky.RichtextFacet

	for _, match := range hashtagRegex.FindAllStringIndex(text, -1) {
		tag := text[match[0]+1 : match[1]] // without the leading '#'
		facets = append(facets, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{
				ByteStart: int64(match[0]),
				ByteEnd:   int64(match[1]),
			},
			Features: []*appbsky.RichtextFacet_Features_Elem{
				{
					RichtextFacet_Tag: &appbsky.RichtextFacet_Tag{Tag: tag},
				},
			},
		})
	}

	for _, match := range linkRegex.FindAllStringIndex(text, -1) {
		uri := text[match[0]:match[1]]
		facets = append(facets, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{
				ByteStart: int64(match[0]),
				ByteEnd:   int64(match[1]),
			},
			Features: []*appbsky.RichtextFacet_Features_Elem{
				{
					RichtextFacet_Link: &appbsky.RichtextFacet_Link{Uri: uri},
				},
			},
		})
	}

	return facets
}

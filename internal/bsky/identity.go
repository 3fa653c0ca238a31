package bsky

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ResolveHandle returns the DID for handle. A DID is returned unchanged without
// a request.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	if strings.HasPrefix(handle, "did:") {
		return handle, nil
	}
	var out struct {
		DID string `json:"did"`
	}
	err := c.query(ctx, "com.atproto.identity.resolveHandle", url.Values{"handle": {handle}}, &out)
	if err != nil {
		return "", &ErrIdentityResolution{Handle: handle, Err: err}
	}
	if !didRe.MatchString(out.DID) {
		return "", &ErrIdentityResolution{Handle: handle, Err: errors.New("response has no valid did")}
	}
	return out.DID, nil
}

package bsky

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// DefaultPostHosts are the web hosts whose post URLs are accepted.
var DefaultPostHosts = []string{"bsky.app"}

var (
	didRe  = regexp.MustCompile(`^did:[a-z]+:[A-Za-z0-9._:%-]+$`)
	rkeyRe = regexp.MustCompile(`^[A-Za-z0-9._:~-]{1,512}$`)
)

// PostRef identifies a post by the actor in its URL and its record key.
type PostRef struct {
	Host   string
	Handle string // normalised handle, or a DID when the URL used one
	RKey   string
}

// IsDID reports whether the actor is already a DID.
func (p PostRef) IsDID() bool { return strings.HasPrefix(p.Handle, "did:") }

// ParsePostURL validates https://<host>/profile/<handle>/post/<rkey> against
// hosts (nil = DefaultPostHosts). Handles are normalised to lowercase ASCII.
func ParsePostURL(raw string, hosts []string) (PostRef, error) {
	raw = strings.TrimSpace(raw)
	invalid := func(reason string) (PostRef, error) {
		return PostRef{}, &ErrInvalidPostURL{URL: raw, Reason: reason}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return invalid("not a URL")
	}
	if u.Scheme != "https" {
		return invalid("scheme must be https")
	}
	if len(hosts) == 0 {
		hosts = DefaultPostHosts
	}
	host := strings.ToLower(u.Hostname())
	if !hostAllowed(host, hosts) {
		return invalid("host " + host + " is not a supported post host")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "profile" || parts[2] != "post" || parts[1] == "" || parts[3] == "" {
		return invalid("path must be /profile/<handle>/post/<rkey>")
	}
	handle, err := normalizeActor(parts[1])
	if err != nil {
		return invalid("bad handle: " + err.Error())
	}
	if !rkeyRe.MatchString(parts[3]) {
		return invalid("bad record key")
	}
	return PostRef{Host: host, Handle: handle, RKey: parts[3]}, nil
}

func hostAllowed(host string, hosts []string) bool {
	for _, h := range hosts {
		if strings.EqualFold(strings.TrimSpace(h), host) {
			return true
		}
	}
	return false
}

type actorError string

func (e actorError) Error() string { return string(e) }

func normalizeActor(s string) (string, error) {
	if strings.HasPrefix(s, "did:") {
		if !didRe.MatchString(s) {
			return "", actorError("malformed DID")
		}
		return s, nil
	}
	s = strings.TrimPrefix(s, "@")
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", err
	}
	if !strings.Contains(ascii, ".") {
		return "", actorError("handle must be a domain name")
	}
	return strings.ToLower(ascii), nil
}

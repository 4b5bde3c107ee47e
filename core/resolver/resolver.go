// Package resolver turns a track locator into a URL the proxy can fetch.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"NawaxRadio/core/radioerr"
)

// DefaultSignedURLTTL bounds how long a signed URL stays valid.
const DefaultSignedURLTTL = 2 * time.Hour

const (
	firebaseHost = "firebasestorage.googleapis.com"
	gcsHost      = "storage.googleapis.com"
	gcsAuthHost  = "storage.cloud.google.com"
	consoleHost  = "console.cloud.google.com"
)

// StorageSigner issues short-lived read URLs for private objects.
type StorageSigner interface {
	Sign(ctx context.Context, bucket, object string, ttl time.Duration) (string, error)
}

// Resolver normalizes direct URLs and signs storage references.
type Resolver struct {
	signer  StorageSigner
	ttl     time.Duration
	private map[string]struct{}
}

// New creates a resolver. signer may be nil, in which case every locator that
// needs signing fails with SigningFailed.
func New(signer StorageSigner, ttl time.Duration, privateBuckets []string) *Resolver {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	private := make(map[string]struct{}, len(privateBuckets))
	for _, b := range privateBuckets {
		if b = CleanBucket(b); b != "" {
			private[b] = struct{}{}
		}
	}
	return &Resolver{signer: signer, ttl: ttl, private: private}
}

// Resolve returns a fetchable URL for locator. It never falls back to an
// unsigned URL when signing was required.
func (r *Resolver) Resolve(ctx context.Context, locator string) (string, error) {
	loc := clean(locator)
	if loc == "" {
		return "", radioerr.New(radioerr.EmptyLocator, "track has no audio locator")
	}

	u, err := url.Parse(loc)
	if err != nil {
		return "", radioerr.Wrap(radioerr.LocatorDecodeFailed, "locator is not a valid URL", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "gs", "s3":
		bucket, object := CleanBucket(u.Host), strings.TrimPrefix(u.Path, "/")
		if bucket == "" || object == "" {
			return "", radioerr.New(radioerr.LocatorDecodeFailed,
				fmt.Sprintf("storage reference %q lacks bucket or object", loc))
		}
		return r.sign(ctx, bucket, object)

	case "http", "https":
		host := strings.ToLower(u.Hostname())
		if host == consoleHost {
			bucket, object, err := decomposeConsole(u)
			if err != nil {
				return "", err
			}
			return r.sign(ctx, bucket, object)
		}

		bucket, object, recognized, err := decomposePublic(u)
		if recognized {
			if _, private := r.private[bucket]; private {
				if err != nil {
					return "", err
				}
				return r.sign(ctx, bucket, object)
			}
		}
		if host == firebaseHost {
			return withMediaParam(u), nil
		}
		return loc, nil

	default:
		return "", radioerr.New(radioerr.LocatorDecodeFailed,
			fmt.Sprintf("unsupported locator scheme %q", u.Scheme))
	}
}

func (r *Resolver) sign(ctx context.Context, bucket, object string) (string, error) {
	if r.signer == nil {
		return "", radioerr.New(radioerr.SigningFailed, "no storage signer configured")
	}
	signed, err := r.signer.Sign(ctx, bucket, object, r.ttl)
	if err != nil {
		return "", radioerr.Wrap(radioerr.SigningFailed,
			fmt.Sprintf("sign %s/%s", bucket, object), err)
	}
	if strings.TrimSpace(signed) == "" {
		return "", radioerr.New(radioerr.SigningFailed, "signer returned an empty URL")
	}
	return signed, nil
}

// CleanBucket trims a bucket name, tolerating a gs:// prefix and trailing slashes.
func CleanBucket(bucket string) string {
	bucket = strings.TrimSpace(bucket)
	if len(bucket) >= 5 && strings.EqualFold(bucket[:5], "gs://") {
		bucket = bucket[5:]
	}
	return strings.TrimRight(bucket, "/")
}

// clean strips surrounding whitespace and any line breaks pasted into the locator.
func clean(locator string) string {
	locator = strings.TrimSpace(locator)
	return strings.NewReplacer("\r", "", "\n", "", "\t", "").Replace(locator)
}

// decomposePublic extracts bucket and object from public style storage URLs.
// recognized is false for hosts that are not storage front ends.
func decomposePublic(u *url.URL) (bucket, object string, recognized bool, err error) {
	host := strings.ToLower(u.Hostname())
	path := strings.TrimPrefix(u.Path, "/")

	switch {
	case host == gcsHost || host == gcsAuthHost:
		parts := strings.SplitN(path, "/", 2)
		bucket = parts[0]
		if len(parts) == 2 {
			object = parts[1]
		}
	case strings.HasSuffix(host, "."+gcsHost):
		bucket = strings.TrimSuffix(host, "."+gcsHost)
		object = path
	case host == firebaseHost:
		// /v0/b/{bucket}/o/{object}, the object is escaped as one segment
		parts := strings.SplitN(path, "/", 5)
		if len(parts) >= 3 && parts[0] == "v0" && parts[1] == "b" {
			bucket = parts[2]
		}
		if len(parts) == 5 && parts[3] == "o" {
			object = parts[4]
		}
	default:
		return "", "", false, nil
	}

	if bucket == "" || object == "" {
		return bucket, object, true, radioerr.New(radioerr.LocatorDecodeFailed,
			fmt.Sprintf("cannot find bucket and object in %s", u.Redacted()))
	}
	return bucket, object, true, nil
}

// decomposeConsole handles console.cloud.google.com/storage/browser/_details/{bucket}/{object}.
func decomposeConsole(u *url.URL) (string, string, error) {
	const prefix = "storage/browser/_details/"
	path := strings.TrimPrefix(u.Path, "/")
	if !strings.HasPrefix(path, prefix) {
		return "", "", radioerr.New(radioerr.LocatorDecodeFailed,
			fmt.Sprintf("console URL %s is not an object details page", u.Redacted()))
	}
	parts := strings.SplitN(strings.TrimPrefix(path, prefix), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", radioerr.New(radioerr.LocatorDecodeFailed,
			fmt.Sprintf("cannot find bucket and object in %s", u.Redacted()))
	}
	object := parts[1]
	if i := strings.IndexByte(object, ';'); i >= 0 {
		object = object[:i] // ;tab=live_object
	}
	if object == "" {
		return "", "", radioerr.New(radioerr.LocatorDecodeFailed,
			fmt.Sprintf("cannot find object in %s", u.Redacted()))
	}
	return parts[0], object, nil
}

// withMediaParam makes sure a Firebase download URL asks for the bytes, not metadata.
func withMediaParam(u *url.URL) string {
	q := u.Query()
	switch q.Get("alt") {
	case "media":
		return u.String()
	case "":
		if u.RawQuery == "" {
			u.RawQuery = "alt=media"
		} else {
			u.RawQuery += "&alt=media"
		}
	default:
		q.Set("alt", "media")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

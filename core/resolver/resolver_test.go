package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"NawaxRadio/core/radioerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signCall struct {
	bucket, object string
	ttl            time.Duration
}

type fakeSigner struct {
	calls []signCall
	err   error
}

func (f *fakeSigner) Sign(ctx context.Context, bucket, object string, ttl time.Duration) (string, error) {
	f.calls = append(f.calls, signCall{bucket, object, ttl})
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("https://signed.example.com/%s/%s?sig=abc", bucket, object), nil
}

func TestResolveDirectURLs(t *testing.T) {
	signer := &fakeSigner{}
	r := New(signer, 0, []string{"gs://private-bkt/"})
	ctx := context.Background()

	tests := []struct {
		name    string
		locator string
		want    string
	}{
		{
			name:    "Plain URL Is Trimmed",
			locator: "  https://cdn.example.com/a.mp3\n",
			want:    "https://cdn.example.com/a.mp3",
		},
		{
			name:    "Embedded Line Break Removed",
			locator: "https://cdn.example.com/\r\nb.mp3",
			want:    "https://cdn.example.com/b.mp3",
		},
		{
			name:    "Firebase Gets alt=media",
			locator: "https://firebasestorage.googleapis.com/v0/b/public-bkt/o/songs%2Fa.mp3",
			want:    "https://firebasestorage.googleapis.com/v0/b/public-bkt/o/songs%2Fa.mp3?alt=media",
		},
		{
			name:    "Firebase Token Kept",
			locator: "https://firebasestorage.googleapis.com/v0/b/public-bkt/o/songs%2Fa.mp3?token=t1",
			want:    "https://firebasestorage.googleapis.com/v0/b/public-bkt/o/songs%2Fa.mp3?token=t1&alt=media",
		},
		{
			name:    "Firebase Already Media",
			locator: "https://firebasestorage.googleapis.com/v0/b/public-bkt/o/a.mp3?alt=media",
			want:    "https://firebasestorage.googleapis.com/v0/b/public-bkt/o/a.mp3?alt=media",
		},
		{
			name:    "Public Bucket Stays Unsigned",
			locator: "https://storage.googleapis.com/public-bkt/songs/a.mp3",
			want:    "https://storage.googleapis.com/public-bkt/songs/a.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.locator)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Empty(t, signer.calls)
}

func TestResolveSignsStorageReferences(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		locator string
		bucket  string
		object  string
	}{
		{"gs Reference", "gs://media-bkt/songs/2024/a.mp3", "media-bkt", "songs/2024/a.mp3"},
		{"s3 Reference", "s3://media-bkt/jingles/id.mp3", "media-bkt", "jingles/id.mp3"},
		{"Private Public Style URL", "https://storage.googleapis.com/private-bkt/songs/b.mp3", "private-bkt", "songs/b.mp3"},
		{"Private Authenticated URL", "https://storage.cloud.google.com/private-bkt/songs/c.mp3", "private-bkt", "songs/c.mp3"},
		{"Private Virtual Host URL", "https://private-bkt.storage.googleapis.com/songs/d.mp3", "private-bkt", "songs/d.mp3"},
		{"Private Firebase URL", "https://firebasestorage.googleapis.com/v0/b/private-bkt/o/songs%2Fe.mp3?alt=media", "private-bkt", "songs/e.mp3"},
		{"Console URL", "https://console.cloud.google.com/storage/browser/_details/any-bkt/songs/f.mp3;tab=live_object", "any-bkt", "songs/f.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer := &fakeSigner{}
			r := New(signer, 90*time.Minute, []string{"private-bkt"})

			got, err := r.Resolve(ctx, tt.locator)
			require.NoError(t, err)
			assert.Contains(t, got, "https://signed.example.com/")
			require.Len(t, signer.calls, 1)
			assert.Equal(t, signCall{tt.bucket, tt.object, 90 * time.Minute}, signer.calls[0])
		})
	}
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		signer  StorageSigner
		locator string
		kind    radioerr.Kind
	}{
		{"Empty", &fakeSigner{}, " \n ", radioerr.EmptyLocator},
		{"Unknown Scheme", &fakeSigner{}, "ftp://host/a.mp3", radioerr.LocatorDecodeFailed},
		{"Bare Path", &fakeSigner{}, "songs/a.mp3", radioerr.LocatorDecodeFailed},
		{"Reference Without Object", &fakeSigner{}, "gs://media-bkt/", radioerr.LocatorDecodeFailed},
		{"Private URL Without Object", &fakeSigner{}, "https://storage.googleapis.com/private-bkt/", radioerr.LocatorDecodeFailed},
		{"Console Listing Page", &fakeSigner{}, "https://console.cloud.google.com/storage/browser/private-bkt", radioerr.LocatorDecodeFailed},
		{"Signer Error", &fakeSigner{err: errors.New("denied")}, "gs://media-bkt/a.mp3", radioerr.SigningFailed},
		{"No Signer", nil, "gs://media-bkt/a.mp3", radioerr.SigningFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.signer, 0, []string{"private-bkt"})
			got, err := r.Resolve(ctx, tt.locator)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.Equal(t, tt.kind, radioerr.KindOf(err))
		})
	}
}

func TestCleanBucket(t *testing.T) {
	assert.Equal(t, "nawax.appspot.com", CleanBucket(" gs://nawax.appspot.com/ "))
	assert.Equal(t, "plain", CleanBucket("plain"))
	assert.Equal(t, "", CleanBucket("GS://"))
}

package gcp

import (
	"context"
	"testing"

	"github.com/facebookgo/clock"

	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

func TestParseGSRef(t *testing.T) {
	cases := []struct {
		ref, bucket, key string
		ok               bool
	}{
		{"gs://training-media/courses/safety/intro.mp4", "training-media", "courses/safety/intro.mp4", true},
		{"gs://training-media/", "", "", false},
		{"gs://", "", "", false},
		{"https://cdn.example.com/a.mp4", "", "", false},
	}
	for _, tc := range cases {
		b, k, ok := ParseGSRef(tc.ref)
		if ok != tc.ok || b != tc.bucket || k != tc.key {
			t.Fatalf("ParseGSRef(%q): want=(%q,%q,%v) got=(%q,%q,%v)", tc.ref, tc.bucket, tc.key, tc.ok, b, k, ok)
		}
	}
}

func TestResolveWithoutClient(t *testing.T) {
	ctx := context.Background()
	r, err := NewMediaResolver(ctx, logger.Nop(), clock.NewMock(), MediaConfig{})
	if err != nil {
		t.Fatalf("NewMediaResolver: %v", err)
	}
	got, err := r.Resolve(ctx, "gs://training-media/intro video.mp4")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := "https://storage.googleapis.com/training-media/intro%20video.mp4"; got != want {
		t.Fatalf("Resolve: want=%q got=%q", want, got)
	}
	if got, _ := r.Resolve(ctx, "https://cdn.example.com/a.mp4"); got != "https://cdn.example.com/a.mp4" {
		t.Fatalf("passthrough: got=%q", got)
	}
	if got, _ := r.Resolve(ctx, "  "); got != "" {
		t.Fatalf("empty ref: got=%q", got)
	}
}

func TestResolveUsesCDNDomain(t *testing.T) {
	ctx := context.Background()
	r, _ := NewMediaResolver(ctx, logger.Nop(), nil, MediaConfig{CDNDomain: "media.example.com"})
	got, _ := r.Resolve(ctx, "gs://training-media/a.mp4")
	if got != "https://media.example.com/a.mp4" {
		t.Fatalf("cdn: got=%q", got)
	}
}

package gcp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/facebookgo/clock"
	"google.golang.org/api/option"

	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

// MediaConfig controls how lesson media references are turned into playable URLs.
type MediaConfig struct {
	// Enabled creates a storage client so gs:// references can be signed.
	Enabled bool
	// EmulatorHost points the client at a fake-gcs-server style emulator.
	EmulatorHost string
	// CDNDomain, when set, replaces storage.googleapis.com in unsigned URLs.
	CDNDomain string
	SignedURLTTL time.Duration
}

// MediaResolver maps a lesson media_ref to a URL the player can load.
type MediaResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

type mediaResolver struct {
	log    *logger.Logger
	client *storage.Client
	cfg    MediaConfig
	clk    clock.Clock
}

func NewMediaResolver(ctx context.Context, log *logger.Logger, clk clock.Clock, cfg MediaConfig) (MediaResolver, error) {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 2 * time.Hour
	}
	r := &mediaResolver{log: log.With("service", "MediaResolver"), cfg: cfg, clk: clk}
	if !cfg.Enabled {
		return r, nil
	}
	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		opts = append(opts, option.WithEndpoint(host+"/storage/v1/"), option.WithoutAuthentication())
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadOnly))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	r.client = client
	r.log.Info("Media resolver initialized", "emulator_host", cfg.EmulatorHost, "cdn_domain", cfg.CDNDomain)
	return r, nil
}

func (r *mediaResolver) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	bucket, key, ok := ParseGSRef(ref)
	if !ok {
		return ref, nil
	}
	if r.client != nil && r.cfg.EmulatorHost == "" {
		signed, err := r.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
			Scheme:  storage.SigningSchemeV4,
			Method:  "GET",
			Expires: r.clk.Now().Add(r.cfg.SignedURLTTL),
		})
		if err == nil {
			return signed, nil
		}
		r.log.Warn("Signing media URL failed; falling back to public URL", "bucket", bucket, "key", key, "error", err)
	}
	return r.publicURL(bucket, key), nil
}

func (r *mediaResolver) publicURL(bucket, key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if host := strings.TrimRight(strings.TrimSpace(r.cfg.EmulatorHost), "/"); host != "" {
		return fmt.Sprintf("%s/%s/%s", host, bucket, escaped)
	}
	if cdn := strings.TrimRight(strings.TrimSpace(r.cfg.CDNDomain), "/"); cdn != "" {
		if !strings.Contains(cdn, "://") {
			cdn = "https://" + cdn
		}
		return fmt.Sprintf("%s/%s", cdn, escaped)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, escaped)
}

func (r *mediaResolver) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// ParseGSRef splits gs://bucket/some/key into its bucket and object key.
func ParseGSRef(ref string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(ref), "gs://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || strings.TrimLeft(key, "/") == "" {
		return "", "", false
	}
	return bucket, strings.TrimLeft(key, "/"), true
}

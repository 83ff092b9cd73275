package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/aniforreal/ani-engine/cardpacks/config"
	"github.com/aniforreal/ani-engine/cardpacks/database/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	lru "github.com/hashicorp/golang-lru"
)

// SpacesService resolves card artwork URLs against a DigitalOcean
// Spaces bucket. Lookups are cached; a missing or unreachable object
// resolves to an empty URL rather than an error — card art is cosmetic.
type SpacesService struct {
	client   *s3.Client
	bucket   string
	region   string
	cardRoot string
	cache    *lru.Cache
}

type imageCacheEntry struct {
	url     string
	expires time.Time
}

func NewSpacesService(key, secret, region, bucket, cardRoot string) (*SpacesService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load spaces config: %w", err)
	}

	cache, _ := lru.New(config.ImageCacheSize)
	return &SpacesService{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		region:   region,
		cardRoot: strings.TrimPrefix(cardRoot, "/"),
		cache:    cache,
	}, nil
}

func (s *SpacesService) Bucket() string { return s.bucket }
func (s *SpacesService) Region() string { return s.region }

// CardImageURL implements the engine's image resolver.
func (s *SpacesService) CardImageURL(ctx context.Context, card *models.Card) string {
	key := s.cardKey(card)

	if entry, ok := s.cache.Get(key); ok {
		cached := entry.(imageCacheEntry)
		if time.Now().Before(cached.expires) {
			return cached.url
		}
		s.cache.Remove(key)
	}

	url := ""
	if s.objectExists(ctx, key) {
		url = fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, key)
	}

	s.cache.Add(key, imageCacheEntry{
		url:     url,
		expires: time.Now().Add(config.ImageCacheExpiration),
	})
	return url
}

func (s *SpacesService) cardKey(card *models.Card) string {
	if card.ImagePath != "" {
		return fmt.Sprintf("%s/%s", s.cardRoot, strings.TrimPrefix(card.ImagePath, "/"))
	}
	return fmt.Sprintf("%s/%s/%d_%s.jpg", s.cardRoot, card.Rarity, card.ID, slugify(card.Name))
}

func (s *SpacesService) objectExists(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, config.NetworkDialTimeout)
	defer cancel()

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		slog.Debug("Card image not found in spaces",
			slog.String("key", key),
			slog.Any("error", err))
		return false
	}
	return true
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "_")
	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

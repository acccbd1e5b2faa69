package picker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/daybookhq/daybook/internal/cache"
	appconfig "github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/model"
)

const imagePrefix = "images/"

// S3Library lists a bucket prefix as the catalog. Alt text and captions
// come from object metadata. Usage counts are session-scoped here; the
// sqlite library is the one that persists them.
type S3Library struct {
	client *s3.Client
	bucket string
	public string

	imageCache       *cache.Cache[string, *model.Image]
	imageCacheSorted []model.Image

	mu    sync.Mutex
	usage map[model.ImageID]int

	reloadNotifier func()
}

func NewS3Library(accessKeyID, accessKeySecret string, s3cfg appconfig.S3Config) *S3Library {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion(s3cfg.Region),
	)
	if err != nil {
		pickerLogger.Fatal().Err(err).Msg("Error initializing S3 client")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
		}
	})

	return &S3Library{
		client: client,
		bucket: s3cfg.Bucket,
		public: strings.TrimSuffix(s3cfg.PublicBaseURL, "/"),

		imageCache: cache.NewCache[string, *model.Image](),
		usage:      make(map[model.ImageID]int),
	}
}

func (l *S3Library) Init() {
	images, imageMap, err := l.loadImages()
	if err != nil {
		pickerLogger.Fatal().Err(err).Msg("Error initializing image library")
	}

	l.imageCacheSorted = images
	l.imageCache.SetTo(imageMap)

	go l.reloadImages()
}

func (l *S3Library) Get(id model.ImageID) (model.Image, bool) {
	img, ok := l.imageCache.Get(string(id))
	if !ok {
		return model.Image{}, false
	}
	return *img, true
}

func (l *S3Library) List() []model.Image {
	return l.imageCacheSorted
}

func (l *S3Library) Usage() map[model.ImageID]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	usage := make(map[model.ImageID]int, len(l.usage))
	for id, n := range l.usage {
		usage[id] = n
	}
	return usage
}

func (l *S3Library) RecordUse(id model.ImageID, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.usage[id] + delta
	if n < 0 {
		n = 0
	}
	l.usage[id] = n
}

func (l *S3Library) SetReloadNotifier(notifier func()) {
	l.reloadNotifier = notifier
}

func (l *S3Library) loadImages() ([]model.Image, map[string]*model.Image, error) {
	images := make([]model.Image, 0)
	imageMap := make(map[string]*model.Image)

	var continuation *string
	for {
		page, err := l.client.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
			Bucket:            aws.String(l.bucket),
			Prefix:            aws.String(imagePrefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, nil, err
		}

		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if key == imagePrefix {
				continue
			}

			img := model.Image{
				ID:        model.ImageID(strings.TrimPrefix(key, imagePrefix)),
				SourceURL: l.public + "/" + key,
			}
			if object.LastModified != nil {
				img.CreatedDate = *object.LastModified
			}

			// One HeadObject per image at load time; galleries are small
			// enough that this beats a sidecar index.
			head, err := l.client.HeadObject(context.TODO(), &s3.HeadObjectInput{
				Bucket: aws.String(l.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				pickerLogger.Warn().Err(err).Str("key", key).Msg("Error reading image metadata")
			} else {
				img.AltText = head.Metadata["alt"]
				img.Caption = head.Metadata["caption"]
			}

			images = append(images, img)
			imageMap[string(img.ID)] = &img
		}

		if page.NextContinuationToken == nil {
			break
		}
		continuation = page.NextContinuationToken
	}

	sortGallery(images)

	return images, imageMap, nil
}

func (l *S3Library) reloadImages() {
	for {
		time.Sleep(5 * time.Minute)

		images, imageMap, err := l.loadImages()
		if err != nil {
			pickerLogger.Error().Err(err).Msg("Error reloading image library")
			continue
		}

		changed := len(images) != len(l.imageCacheSorted)
		if !changed {
			for i := range images {
				if images[i].ID != l.imageCacheSorted[i].ID {
					changed = true
					break
				}
			}
		}

		l.imageCacheSorted = images
		l.imageCache.SetTo(imageMap)

		if changed {
			pickerLogger.Info().Int("images", len(images)).Msg("Image library reloaded")
			if l.reloadNotifier != nil {
				go l.reloadNotifier()
			}
		}
	}
}

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
)

// MongoOptions configures NewMongoSource.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string

	// Timeout bounds connecting and each query (default 10s).
	Timeout time.Duration
}

// MongoSource serves galleries from a collection of image documents. Each
// document carries the image fields plus a "gallery" field.
type MongoSource struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// mongoImage is the stored document shape.
type mongoImage struct {
	Gallery       string `bson:"gallery"`
	gallery.Image `bson:",inline"`
}

// NewMongoSource connects to MongoDB and verifies the connection.
func NewMongoSource(ctx context.Context, opts MongoOptions) (*MongoSource, error) {
	if opts.Database == "" || opts.Collection == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo database and collection are required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI).SetTimeout(timeout))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoSource{
		client:  client,
		coll:    client.Database(opts.Database).Collection(opts.Collection),
		timeout: timeout,
	}, nil
}

// Images implements Source.
func (s *MongoSource) Images(ctx context.Context, galleryID string) ([]gallery.Image, error) {
	if err := errors.ValidateID("gallery", galleryID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.coll.Find(ctx, galleryFilter(galleryID), options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query gallery %s: %w", galleryID, err)
	}
	var docs []mongoImage
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode gallery %s: %w", galleryID, err)
	}
	if len(docs) == 0 {
		return nil, notFound(galleryID)
	}

	images := make([]gallery.Image, len(docs))
	for i, d := range docs {
		images[i] = d.Image
	}
	return finish(images)
}

// Put replaces a gallery's documents with images.
func (s *MongoSource) Put(ctx context.Context, galleryID string, images []gallery.Image) error {
	if err := errors.ValidateID("gallery", galleryID); err != nil {
		return err
	}
	if err := gallery.Validate(images); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.coll.DeleteMany(ctx, galleryFilter(galleryID)); err != nil {
		return fmt.Errorf("clear gallery %s: %w", galleryID, err)
	}
	if len(images) == 0 {
		return nil
	}
	docs := make([]any, len(images))
	for i, img := range images {
		docs[i] = mongoImage{Gallery: galleryID, Image: img}
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert gallery %s: %w", galleryID, err)
	}
	return nil
}

// Name implements Source.
func (s *MongoSource) Name() string { return "mongo" }

// Close disconnects the client.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func galleryFilter(galleryID string) bson.D {
	return bson.D{{Key: "gallery", Value: galleryID}}
}

var _ Source = (*MongoSource)(nil)

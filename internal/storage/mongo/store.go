// Package mongo keeps one document per identity in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/models"
)

const collectionName = "engine_states"

type document struct {
	ID                 string `bson:"_id"`
	models.EngineState `bson:",inline"`
}

type Store struct {
	uri    string
	dbName string
	client *mongo.Client
	coll   *mongo.Collection
}

// IsConnString reports whether s is a MongoDB URI
func IsConnString(s string) bool {
	return strings.HasPrefix(s, "mongodb://") || strings.HasPrefix(s, "mongodb+srv://")
}

// New returns a store for uri. The database is the URI path, or "grove" when absent.
func New(uri string) *Store {
	dbName := constants.AppName
	if u, err := url.Parse(uri); err == nil {
		if p := strings.Trim(u.Path, "/"); p != "" {
			dbName = p
		}
	}
	return &Store{uri: uri, dbName: dbName}
}

func (s *Store) connect(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, constants.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri).SetAppName(constants.AppName))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to reach mongodb: %w", err)
	}
	s.client = client
	s.coll = client.Database(s.dbName).Collection(collectionName)
	return nil
}

// Init connects. Collections are created on first write.
func (s *Store) Init(ctx context.Context) error {
	return s.connect(ctx)
}

func (s *Store) Open(ctx context.Context) error {
	return s.connect(ctx)
}

func (s *Store) Load(ctx context.Context, identity string) (models.EngineState, error) {
	if s.coll == nil {
		return models.EngineState{}, fmt.Errorf("storage not loaded")
	}

	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": identity}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewEngineState(identity), nil
	}
	if err != nil {
		return models.EngineState{}, fmt.Errorf("failed to load state: %w", err)
	}
	if doc.Version > models.StateVersion {
		return models.EngineState{}, fmt.Errorf("state version %d is newer than supported version %d", doc.Version, models.StateVersion)
	}
	doc.EngineState.Normalize(identity)
	return doc.EngineState, nil
}

func (s *Store) Save(ctx context.Context, identity string, state models.EngineState) error {
	if s.coll == nil {
		return fmt.Errorf("storage not loaded")
	}
	state.Normalize(identity)

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": identity}, document{ID: identity, EngineState: state}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *Store) Identities(ctx context.Context) ([]string, error) {
	if s.coll == nil {
		return nil, fmt.Errorf("storage not loaded")
	}
	values, err := s.coll.Distinct(ctx, "_id", bson.M{})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for _, v := range values {
		if k, ok := v.(string); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(context.Background())
	s.client, s.coll = nil, nil
	return err
}

func (s *Store) GetConfigPath() string {
	return "mongodb/" + s.dbName
}

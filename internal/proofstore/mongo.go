package proofstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "property_proofs"

// ErrNotFound is returned when a property has no archived proof.
var ErrNotFound = errors.New("proof not found")

// Record is one archived ownership-document proof.
type Record struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PropertyID int64              `bson:"property_id" json:"property_id"`
	OwnerID    int64              `bson:"owner_id" json:"owner_id"`
	ProofJSON  string             `bson:"proof" json:"-"`
	Proof      json.RawMessage    `bson:"-" json:"proof"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Archive keeps generated proofs so owners can fetch them again.
type Archive interface {
	Save(ctx context.Context, rec Record) (Record, error)
	Latest(ctx context.Context, propertyID int64) (Record, error)
}

// MongoArchive stores proofs in the property_proofs collection.
type MongoArchive struct {
	coll *mongo.Collection
}

var _ Archive = (*MongoArchive)(nil)

// Connect opens and pings a MongoDB client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewMongoArchive(client *mongo.Client, dbName string) *MongoArchive {
	return &MongoArchive{coll: client.Database(dbName).Collection(collectionName)}
}

// EnsureIndexes creates the lookup index used by Latest.
func (a *MongoArchive) EnsureIndexes(ctx context.Context) error {
	_, err := a.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create proof index: %w", err)
	}
	return nil
}

func (a *MongoArchive) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ProofJSON = string(rec.Proof)

	res, err := a.coll.InsertOne(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("insert proof: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = id
	}
	return rec, nil
}

func (a *MongoArchive) Latest(ctx context.Context, propertyID int64) (Record, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var rec Record
	err := a.coll.FindOne(ctx, bson.M{"property_id": propertyID}, opts).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find proof: %w", err)
	}
	rec.Proof = json.RawMessage(rec.ProofJSON)
	return rec, nil
}

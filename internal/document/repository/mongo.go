package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// snapshotRecord is the Mongo representation of one collection snapshot.
type snapshotRecord struct {
	Name      string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	Size      int       `bson:"size"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoMirror upserts the snapshot as one document keyed by name.
// A single-document update is atomic in MongoDB.
type MongoMirror struct {
	col  *mongo.Collection
	name string
}

func NewMongoMirror(col *mongo.Collection, name string) *MongoMirror {
	if name == "" {
		name = "documents"
	}
	return &MongoMirror{col: col, name: name}
}

func (m *MongoMirror) Name() string { return "mongo" }

func (m *MongoMirror) Read(ctx context.Context) ([]byte, error) {
	var rec snapshotRecord
	if err := m.col.FindOne(ctx, bson.M{"_id": m.name}).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrSnapshotMissing
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return rec.Data, nil
}

func (m *MongoMirror) Write(ctx context.Context, data []byte) error {
	rec := snapshotRecord{Name: m.name, Data: data, Size: len(data), UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.col.ReplaceOne(ctx, bson.M{"_id": m.name}, rec, opts); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Quarantine copies the unreadable snapshot under a new _id and leaves the
// original to be overwritten by the next write.
func (m *MongoMirror) Quarantine(ctx context.Context) (string, error) {
	var rec snapshotRecord
	if err := m.col.FindOne(ctx, bson.M{"_id": m.name}).Decode(&rec); err != nil {
		return "", fmt.Errorf("quarantine snapshot: %w", err)
	}
	rec.Name = fmt.Sprintf("%s.corrupt-%d", m.name, time.Now().Unix())
	if _, err := m.col.InsertOne(ctx, rec); err != nil {
		return "", fmt.Errorf("quarantine snapshot: %w", err)
	}
	return rec.Name, nil
}

package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabase = "sales_warehouse"
	RunsCollection  = "etl_runs"
)

// MongoSink appends run reports to <database>.etl_runs.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoSink(ctx context.Context, uri, database string) (*MongoSink, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(RunsCollection),
	}, nil
}

func (ms *MongoSink) Record(ctx context.Context, report RunReport) error {
	doc := bson.M{
		"_id":         report.RunID.String() + "/" + string(report.Stage),
		"run_id":      report.RunID.String(),
		"stage":       report.Stage,
		"started_at":  report.StartedAt,
		"finished_at": report.FinishedAt,
		"inspections": report.Inspections,
		"outcomes":    report.Outcomes,
	}
	if report.Error != "" {
		doc["error"] = report.Error
	}
	if _, err := ms.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert run report: %w", err)
	}
	return nil
}

// Runs returns the stored reports for runID, oldest first.
func (ms *MongoSink) Runs(ctx context.Context, runID string) ([]bson.M, error) {
	cursor, err := ms.collection.Find(ctx, bson.M{"run_id": runID},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []bson.M
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (ms *MongoSink) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}

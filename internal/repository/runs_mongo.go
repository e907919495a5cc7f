package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"kata_review/internal/domain"
	ownErrors "kata_review/internal/errors"
)

const runsCollection = "analysis_runs"

type RunRepositoryMongo struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewRunRepositoryMongo(log *zap.SugaredLogger, mongo *mongo.Database) *RunRepositoryMongo {
	return &RunRepositoryMongo{log: log, mongo: mongo}
}

func (r *RunRepositoryMongo) SaveRun(ctx context.Context, run domain.Analysis) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(runsCollection)
	opts := options.Replace().SetUpsert(true)
	if _, err := collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run, opts); err != nil {
		r.log.Errorf("failed to save analysis run %s: %v", run.ID, err)
		return err
	}
	return nil
}

func (r *RunRepositoryMongo) GetRun(ctx context.Context, id string) (domain.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var run domain.Analysis
	err := r.mongo.Collection(runsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Analysis{}, ownErrors.ErrRunNotFound
	}
	if err != nil {
		return domain.Analysis{}, err
	}
	return run, nil
}

func (r *RunRepositoryMongo) ListRuns(ctx context.Context, limit int) ([]domain.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"nodes": 0})
	cursor, err := r.mongo.Collection(runsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []domain.Analysis
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

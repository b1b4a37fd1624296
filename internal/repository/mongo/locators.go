package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"matchcast/internal/domain"
)

type LocatorRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

type partDoc struct {
	ID            string `bson:"id"`
	Title         string `bson:"title"`
	ExternalURL   string `bson:"externalUrl"`
	InternalURL   string `bson:"internalUrl,omitempty"`
	LastRefreshed int64  `bson:"lastRefreshed,omitempty"`
	Metadata      string `bson:"metadata,omitempty"`
}

type stateDoc struct {
	Status          string  `bson:"status"`
	CompletionRatio float64 `bson:"completionRatio"`
	Error           string  `bson:"error,omitempty"`
}

type locatorDoc struct {
	ID           int64    `bson:"_id"`
	PlaylistPath string   `bson:"playlistPath"`
	Part         partDoc  `bson:"part"`
	State        stateDoc `bson:"state"`
	CreatedAt    int64    `bson:"createdAt"`
}

func NewLocatorRepository(client *mongo.Client, dbName string) *LocatorRepository {
	db := client.Database(dbName)
	return &LocatorRepository{db: db, collection: db.Collection(locatorCollection)}
}

func (r *LocatorRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "part.id", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "state.status", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *LocatorRepository) Create(ctx context.Context, loc domain.StreamLocator) (domain.StreamLocator, error) {
	id, err := nextSequence(ctx, r.db, locatorCollection)
	if err != nil {
		return domain.StreamLocator{}, err
	}
	loc.ID = domain.LocatorID(id)
	if _, err := r.collection.InsertOne(ctx, toLocatorDoc(loc)); err != nil {
		return domain.StreamLocator{}, err
	}
	return loc, nil
}

func (r *LocatorRepository) Get(ctx context.Context, id domain.LocatorID) (domain.StreamLocator, error) {
	var doc locatorDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.StreamLocator{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StreamLocator{}, err
	}
	return fromLocatorDoc(doc)
}

func (r *LocatorRepository) GetByPart(ctx context.Context, partID uuid.UUID) (domain.StreamLocator, error) {
	var doc locatorDoc
	err := r.collection.FindOne(
		ctx,
		bson.M{"part.id": partID.String()},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.StreamLocator{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StreamLocator{}, err
	}
	return fromLocatorDoc(doc)
}

func (r *LocatorRepository) Update(ctx context.Context, loc domain.StreamLocator) error {
	doc := toLocatorDoc(loc)
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": int64(loc.ID)}, bson.M{"$set": bson.M{
		"playlistPath": doc.PlaylistPath,
		"part":         doc.Part,
		"state":        doc.State,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LocatorRepository) Delete(ctx context.Context, id domain.LocatorID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": int64(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toLocatorDoc(loc domain.StreamLocator) locatorDoc {
	return locatorDoc{
		ID:           int64(loc.ID),
		PlaylistPath: loc.PlaylistPath,
		Part:         toPartDoc(loc.Part),
		State: stateDoc{
			Status:          string(loc.State.Status),
			CompletionRatio: loc.State.CompletionRatio,
			Error:           loc.State.Error,
		},
		CreatedAt: loc.CreatedAt.UTC().UnixMilli(),
	}
}

func fromLocatorDoc(doc locatorDoc) (domain.StreamLocator, error) {
	part, err := fromPartDoc(doc.Part)
	if err != nil {
		return domain.StreamLocator{}, err
	}
	return domain.StreamLocator{
		ID:           domain.LocatorID(doc.ID),
		PlaylistPath: doc.PlaylistPath,
		Part:         part,
		State: domain.JobState{
			Status:          domain.JobStatus(doc.State.Status),
			CompletionRatio: doc.State.CompletionRatio,
			Error:           doc.State.Error,
		},
		CreatedAt: time.UnixMilli(doc.CreatedAt).UTC(),
	}, nil
}

func toPartDoc(p domain.Part) partDoc {
	doc := partDoc{
		ID:          p.ID.String(),
		Title:       string(p.Title),
		ExternalURL: p.ExternalURL,
		InternalURL: p.InternalURL,
		Metadata:    p.Metadata,
	}
	if !p.LastRefreshed.IsZero() {
		doc.LastRefreshed = p.LastRefreshed.UTC().UnixMilli()
	}
	return doc
}

func fromPartDoc(doc partDoc) (domain.Part, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Part{}, err
	}
	p := domain.Part{
		ID:          id,
		Title:       domain.PartID(doc.Title),
		ExternalURL: doc.ExternalURL,
		InternalURL: doc.InternalURL,
		Metadata:    doc.Metadata,
	}
	if doc.LastRefreshed != 0 {
		p.LastRefreshed = time.UnixMilli(doc.LastRefreshed).UTC()
	}
	return p, nil
}

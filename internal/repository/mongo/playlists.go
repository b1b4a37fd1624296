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

// PlaylistRepository stores playlist aggregates. Member locators live in
// their own collection; the playlist document carries only their IDs and
// reads join them back in stored order.
type PlaylistRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
	locators   *LocatorRepository
}

type playlistDoc struct {
	ID          int64   `bson:"_id"`
	SourceID    string  `bson:"sourceId"`
	StorageRoot string  `bson:"storageRoot"`
	CreatedAt   int64   `bson:"createdAt"`
	LocatorIDs  []int64 `bson:"locatorIds"`
}

func NewPlaylistRepository(client *mongo.Client, dbName string, locators *LocatorRepository) *PlaylistRepository {
	db := client.Database(dbName)
	return &PlaylistRepository{
		db:         db,
		collection: db.Collection(playlistCollection),
		locators:   locators,
	}
}

func (r *PlaylistRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sourceId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "locatorIds", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *PlaylistRepository) Create(ctx context.Context, pl domain.LocatorPlaylist) (domain.LocatorPlaylist, error) {
	id, err := nextSequence(ctx, r.db, playlistCollection)
	if err != nil {
		return domain.LocatorPlaylist{}, err
	}
	pl.ID = id
	if _, err := r.collection.InsertOne(ctx, toPlaylistDoc(pl)); err != nil {
		return domain.LocatorPlaylist{}, err
	}
	return pl, nil
}

func (r *PlaylistRepository) GetBySource(ctx context.Context, sourceID uuid.UUID) (domain.LocatorPlaylist, error) {
	var doc playlistDoc
	err := r.collection.FindOne(
		ctx,
		bson.M{"sourceId": sourceID.String()},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.LocatorPlaylist{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LocatorPlaylist{}, err
	}
	return r.hydrate(ctx, doc)
}

func (r *PlaylistRepository) GetContaining(ctx context.Context, locatorID domain.LocatorID) (domain.LocatorPlaylist, error) {
	var doc playlistDoc
	err := r.collection.FindOne(ctx, bson.M{"locatorIds": int64(locatorID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.LocatorPlaylist{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LocatorPlaylist{}, err
	}
	return r.hydrate(ctx, doc)
}

func (r *PlaylistRepository) List(ctx context.Context) ([]domain.LocatorPlaylist, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.LocatorPlaylist
	for cursor.Next(ctx) {
		var doc playlistDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		pl, err := r.hydrate(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, cursor.Err()
}

func (r *PlaylistRepository) Update(ctx context.Context, pl domain.LocatorPlaylist) error {
	doc := toPlaylistDoc(pl)
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": pl.ID}, bson.M{"$set": bson.M{
		"storageRoot": doc.StorageRoot,
		"locatorIds":  doc.LocatorIDs,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PlaylistRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// hydrate joins member locators back in, preserving the stored order. A
// dangling locator ID is skipped rather than failing the whole read.
func (r *PlaylistRepository) hydrate(ctx context.Context, doc playlistDoc) (domain.LocatorPlaylist, error) {
	sourceID, err := uuid.Parse(doc.SourceID)
	if err != nil {
		return domain.LocatorPlaylist{}, err
	}
	pl := domain.LocatorPlaylist{
		ID:          doc.ID,
		SourceID:    sourceID,
		StorageRoot: doc.StorageRoot,
		CreatedAt:   time.UnixMilli(doc.CreatedAt).UTC(),
	}
	if len(doc.LocatorIDs) == 0 {
		return pl, nil
	}

	cursor, err := r.locators.collection.Find(ctx, bson.M{"_id": bson.M{"$in": doc.LocatorIDs}})
	if err != nil {
		return domain.LocatorPlaylist{}, err
	}
	defer cursor.Close(ctx)

	byID := make(map[int64]domain.StreamLocator, len(doc.LocatorIDs))
	for cursor.Next(ctx) {
		var ld locatorDoc
		if err := cursor.Decode(&ld); err != nil {
			return domain.LocatorPlaylist{}, err
		}
		loc, err := fromLocatorDoc(ld)
		if err != nil {
			return domain.LocatorPlaylist{}, err
		}
		byID[ld.ID] = loc
	}
	if err := cursor.Err(); err != nil {
		return domain.LocatorPlaylist{}, err
	}

	for _, id := range doc.LocatorIDs {
		if loc, ok := byID[id]; ok {
			pl.Locators = append(pl.Locators, loc)
		}
	}
	return pl, nil
}

func toPlaylistDoc(pl domain.LocatorPlaylist) playlistDoc {
	ids := make([]int64, len(pl.Locators))
	for i, loc := range pl.Locators {
		ids[i] = int64(loc.ID)
	}
	return playlistDoc{
		ID:          pl.ID,
		SourceID:    pl.SourceID.String(),
		StorageRoot: pl.StorageRoot,
		CreatedAt:   pl.CreatedAt.UTC().UnixMilli(),
		LocatorIDs:  ids,
	}
}

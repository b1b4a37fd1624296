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

type EventRepository struct {
	collection *mongo.Collection
}

type countryDoc struct {
	Name    string   `bson:"name"`
	Locales []string `bson:"locales,omitempty"`
}

type competitionDoc struct {
	ID      string     `bson:"id"`
	Name    string     `bson:"name"`
	Country countryDoc `bson:"country"`
}

type teamDoc struct {
	ID      string     `bson:"id"`
	Name    string     `bson:"name"`
	Country countryDoc `bson:"country"`
}

type matchDoc struct {
	HomeTeam teamDoc `bson:"homeTeam"`
	AwayTeam teamDoc `bson:"awayTeam"`
}

type packDoc struct {
	Parts []partDoc `bson:"parts"`
}

type sourceDoc struct {
	ID          string    `bson:"id"`
	Channel     string    `bson:"channel,omitempty"`
	Languages   string    `bson:"languages,omitempty"`
	Resolution  string    `bson:"resolution"`
	VideoCodec  string    `bson:"videoCodec,omitempty"`
	AudioCodec  string    `bson:"audioCodec,omitempty"`
	BitrateKbps int64     `bson:"bitrateKbps,omitempty"`
	DurationMs  int64     `bson:"durationMs,omitempty"`
	Packs       []packDoc `bson:"packs"`
}

type eventDoc struct {
	ID          string         `bson:"_id"`
	Title       string         `bson:"title"`
	Kind        string         `bson:"kind"`
	Date        int64          `bson:"date"`
	Competition competitionDoc `bson:"competition"`
	Match       *matchDoc      `bson:"match,omitempty"`
	Sources     []sourceDoc    `bson:"sources"`
}

func NewEventRepository(client *mongo.Client, dbName string) *EventRepository {
	return &EventRepository{collection: client.Database(dbName).Collection(eventCollection)}
}

func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sources.id", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *EventRepository) Get(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	var doc eventDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Event{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}
	return fromEventDoc(doc)
}

func (r *EventRepository) GetBySource(ctx context.Context, sourceID uuid.UUID) (domain.Event, error) {
	var doc eventDoc
	err := r.collection.FindOne(ctx, bson.M{"sources.id": sourceID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Event{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}
	return fromEventDoc(doc)
}

// Upsert stores the event wholesale, keyed by its ID. Events come from an
// external ingest and are replaced, never merged.
func (r *EventRepository) Upsert(ctx context.Context, ev domain.Event) error {
	doc := toEventDoc(ev)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc,
		options.Replace().SetUpsert(true))
	return err
}

func toEventDoc(ev domain.Event) eventDoc {
	doc := eventDoc{
		ID:          ev.ID.String(),
		Title:       ev.Title,
		Kind:        string(ev.Kind),
		Date:        ev.Date.UTC().UnixMilli(),
		Competition: toCompetitionDoc(ev.Competition),
	}
	if ev.Match != nil {
		doc.Match = &matchDoc{
			HomeTeam: toTeamDoc(ev.Match.HomeTeam),
			AwayTeam: toTeamDoc(ev.Match.AwayTeam),
		}
	}
	for _, src := range ev.Sources {
		doc.Sources = append(doc.Sources, toSourceDoc(src))
	}
	return doc
}

func fromEventDoc(doc eventDoc) (domain.Event, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Event{}, err
	}
	comp, err := fromCompetitionDoc(doc.Competition)
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{
		ID:          id,
		Title:       doc.Title,
		Kind:        domain.EventKind(doc.Kind),
		Date:        time.UnixMilli(doc.Date).UTC(),
		Competition: comp,
	}
	if doc.Match != nil {
		home, err := fromTeamDoc(doc.Match.HomeTeam)
		if err != nil {
			return domain.Event{}, err
		}
		away, err := fromTeamDoc(doc.Match.AwayTeam)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Match = &domain.MatchDetail{HomeTeam: home, AwayTeam: away}
	}
	for _, sd := range doc.Sources {
		src, err := fromSourceDoc(sd)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Sources = append(ev.Sources, src)
	}
	return ev, nil
}

func toCompetitionDoc(c domain.Competition) competitionDoc {
	return competitionDoc{
		ID:      c.ID.String(),
		Name:    c.Name,
		Country: countryDoc{Name: c.Country.Name, Locales: c.Country.Locales},
	}
}

func fromCompetitionDoc(doc competitionDoc) (domain.Competition, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Competition{}, err
	}
	return domain.Competition{
		ID:      id,
		Name:    doc.Name,
		Country: domain.Country{Name: doc.Country.Name, Locales: doc.Country.Locales},
	}, nil
}

func toTeamDoc(t domain.Team) teamDoc {
	return teamDoc{
		ID:      t.ID.String(),
		Name:    t.Name,
		Country: countryDoc{Name: t.Country.Name, Locales: t.Country.Locales},
	}
}

func fromTeamDoc(doc teamDoc) (domain.Team, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Team{}, err
	}
	return domain.Team{
		ID:      id,
		Name:    doc.Name,
		Country: domain.Country{Name: doc.Country.Name, Locales: doc.Country.Locales},
	}, nil
}

func toSourceDoc(src domain.VideoSource) sourceDoc {
	doc := sourceDoc{
		ID:          src.ID.String(),
		Channel:     src.Channel,
		Languages:   src.Languages,
		Resolution:  string(src.Resolution),
		VideoCodec:  src.VideoCodec,
		AudioCodec:  src.AudioCodec,
		BitrateKbps: src.BitrateKbps,
		DurationMs:  src.Duration.Milliseconds(),
	}
	for _, pack := range src.Packs {
		pd := packDoc{}
		for _, part := range pack.Parts {
			pd.Parts = append(pd.Parts, toPartDoc(part))
		}
		doc.Packs = append(doc.Packs, pd)
	}
	return doc
}

func fromSourceDoc(doc sourceDoc) (domain.VideoSource, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.VideoSource{}, err
	}
	src := domain.VideoSource{
		ID:          id,
		Channel:     doc.Channel,
		Languages:   doc.Languages,
		Resolution:  domain.Resolution(doc.Resolution),
		VideoCodec:  doc.VideoCodec,
		AudioCodec:  doc.AudioCodec,
		BitrateKbps: doc.BitrateKbps,
		Duration:    time.Duration(doc.DurationMs) * time.Millisecond,
	}
	for _, pd := range doc.Packs {
		pack := domain.PartPack{}
		for _, part := range pd.Parts {
			p, err := fromPartDoc(part)
			if err != nil {
				return domain.VideoSource{}, err
			}
			pack.Parts = append(pack.Parts, p)
		}
		src.Packs = append(src.Packs, pack)
	}
	return src, nil
}

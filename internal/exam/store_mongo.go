package exam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const examsCollection = "exams"

type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

type questionDocument struct {
	Text          string   `bson:"text"`
	Options       []string `bson:"options"`
	CorrectAnswer Answer   `bson:"correctAnswer"`
}

type examDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ExamCode   string             `bson:"examCode"`
	Name       string             `bson:"name"`
	TotalMarks float64            `bson:"totalMarks"`
	Duration   int                `bson:"duration"`
	Questions  []questionDocument `bson:"questions"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(examsCollection), now: time.Now}
}

// EnsureIndexes creates the non-unique exam code index used by FindByCode.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "examCode", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create exam code index: %w", err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, id string) (*Exam, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc examDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: find exam by id: %w", ErrStoreUnavailable, err)
	}
	return doc.toExam(), nil
}

func (s *MongoStore) FindByCode(ctx context.Context, code string) (*Exam, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	var doc examDocument
	if err := s.coll.FindOne(ctx, bson.M{"examCode": code}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: find exam by code: %w", ErrStoreUnavailable, err)
	}
	return doc.toExam(), nil
}

func (s *MongoStore) Save(ctx context.Context, e *Exam) (*Exam, error) {
	if e == nil {
		return nil, ErrInvalidExam
	}
	doc := newExamDocument(e)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("%w: insert exam: %w", ErrPersistenceError, err)
	}
	return doc.toExam(), nil
}

func (s *MongoStore) List(ctx context.Context) ([]Exam, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list exams: %w", ErrStoreUnavailable, err)
	}
	var docs []examDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode exams: %w", ErrStoreUnavailable, err)
	}

	out := make([]Exam, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toExam())
	}
	return out, nil
}

func newExamDocument(e *Exam) examDocument {
	doc := examDocument{
		ExamCode:   e.ExamCode,
		Name:       e.Name,
		TotalMarks: e.TotalMarks,
		Duration:   e.Duration,
		Questions:  make([]questionDocument, 0, len(e.Questions)),
	}
	for _, q := range e.Questions {
		doc.Questions = append(doc.Questions, questionDocument{
			Text:          q.Text,
			Options:       cloneOptions(q.Options),
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	return doc
}

func (d *examDocument) toExam() *Exam {
	e := &Exam{
		ID:         d.ID.Hex(),
		ExamCode:   d.ExamCode,
		Name:       d.Name,
		TotalMarks: d.TotalMarks,
		Duration:   d.Duration,
		Questions:  make([]Question, 0, len(d.Questions)),
		CreatedAt:  d.CreatedAt.UTC(),
	}
	for _, q := range d.Questions {
		e.Questions = append(e.Questions, Question{
			Text:          q.Text,
			Options:       cloneOptions(q.Options),
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	return e
}

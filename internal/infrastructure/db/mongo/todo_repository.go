package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/todoapp/todo-api/internal/core/domain"
)

const collectionTodos = "todos"

// TodoRepository stores todos. Every query is filtered by the owner, so a
// todo owned by someone else is simply not found.
type TodoRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewTodoRepository(db *mongo.Database) *TodoRepository {
	return &TodoRepository{col: db.Collection(collectionTodos), now: time.Now}
}

type todoDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Text      string             `bson:"text"`
	Completed bool               `bson:"completed"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
	Owner     primitive.ObjectID `bson:"user"`
}

func (d todoDocument) toDomain() *domain.Todo {
	return &domain.Todo{
		ID:        d.ID.Hex(),
		OwnerID:   d.Owner.Hex(),
		Text:      d.Text,
		Completed: d.Completed,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// scope builds the (id, owner) filter. Malformed ids map to ErrTodoNotFound.
func scope(id, ownerID string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTodoNotFound
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, domain.ErrTodoNotFound
	}
	return bson.M{"_id": oid, "user": owner}, nil
}

// Create inserts a todo for todo.OwnerID.
func (r *TodoRepository) Create(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	owner, err := primitive.ObjectIDFromHex(todo.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("insert todo: invalid owner id %q", todo.OwnerID)
	}

	created := todo.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	doc := todoDocument{
		ID:        primitive.NewObjectID(),
		Text:      todo.Text,
		Completed: todo.Completed,
		CreatedAt: created.UTC(),
		UpdatedAt: created.UTC(),
		Owner:     owner,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	return doc.toDomain(), nil
}

// ListByOwner returns the owner's todos, newest first.
func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []*domain.Todo{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("find todos: %w", err)
	}
	defer cur.Close(ctx)

	var docs []todoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}

	todos := make([]*domain.Todo, 0, len(docs))
	for _, d := range docs {
		todos = append(todos, d.toDomain())
	}
	return todos, nil
}

func (r *TodoRepository) FindByID(ctx context.Context, id, ownerID string) (*domain.Todo, error) {
	filter, err := scope(id, ownerID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc todoDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTodoNotFound
		}
		return nil, fmt.Errorf("find todo: %w", err)
	}
	return doc.toDomain(), nil
}

// Update applies patch atomically and returns the updated todo. An empty
// patch returns the current document unchanged.
func (r *TodoRepository) Update(ctx context.Context, id, ownerID string, patch domain.TodoPatch) (*domain.Todo, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id, ownerID)
	}

	filter, err := scope(id, ownerID)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": r.now().UTC()}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc todoDocument
	if err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTodoNotFound
		}
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TodoRepository) Delete(ctx context.Context, id, ownerID string) error {
	filter, err := scope(id, ownerID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTodoNotFound
	}
	return nil
}

// EnsureIndexes creates the owner/creation-time index used by listing.
func (r *TodoRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create todo indexes: %w", err)
	}
	return nil
}

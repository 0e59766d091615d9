package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Books are stored as one hash per book. The descriptive fields travel as a
// single json blob while the copy counter and the asset presence flags live
// in their own hash fields: HINCRBY provides the atomic increment the
// return path needs and HSET on one field the single-flag persist used by
// the asset confirmation path.
const (
	BooksIndex     = "books"
	bookKeyPrefix  = "book:"
	fieldData      = "data"
	fieldAvailable = "available_copies"
	fieldHasCover  = "has_cover"
	fieldHasModel  = "has_model"
	fieldHasPages  = "has_pages"
	fieldCoverExt  = "cover_ext"
)

func bookKey(id string) string { return bookKeyPrefix + id }

func flagField(kind AssetKind) string {
	switch kind {
	case AssetCover:
		return fieldHasCover
	case AssetModel:
		return fieldHasModel
	default:
		return fieldHasPages
	}
}

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Add inserts a new book record and indexes its id.
func (rs *redisBookStorage) Add(ctx context.Context, id string, book Book) error {
	dataBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	if err = rs.client.HSet(ctx, bookKey(id),
		fieldData, dataBytes,
		fieldAvailable, book.AvailableCopies,
		fieldHasCover, boolField(book.HasCover),
		fieldHasModel, boolField(book.HasModel),
		fieldHasPages, boolField(book.HasPages),
		fieldCoverExt, book.CoverExt,
	).Err(); err != nil {
		return err
	}
	return rs.client.SAdd(ctx, BooksIndex, id).Err()
}

// GetOne retrieves a book record based on its ID. The counter and flag
// fields are authoritative over whatever the json blob carries.
func (rs *redisBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	var book Book
	fields, err := rs.client.HGetAll(ctx, bookKey(id)).Result()
	if err != nil {
		return book, err
	}
	if len(fields) == 0 {
		return book, ErrBookNotFound
	}
	if err = json.Unmarshal([]byte(fields[fieldData]), &book); err != nil {
		return book, err
	}
	book.AvailableCopies, _ = strconv.ParseInt(fields[fieldAvailable], 10, 64)
	book.HasCover = fields[fieldHasCover] == "1"
	book.HasModel = fields[fieldHasModel] == "1"
	book.HasPages = fields[fieldHasPages] == "1"
	book.CoverExt = fields[fieldCoverExt]
	return book, nil
}

// Delete removes a book record and unindexes its id.
func (rs *redisBookStorage) Delete(ctx context.Context, id string) error {
	deleted, err := rs.client.Del(ctx, bookKey(id)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrBookNotFound
	}
	return rs.client.SRem(ctx, BooksIndex, id).Err()
}

// Update rewrites the descriptive json blob only. The copy counter, the
// presence flags and the cover extension are owned by their dedicated
// mutation paths.
func (rs *redisBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	dataBytes, err := json.Marshal(book)
	if err != nil {
		return book, err
	}
	if err = rs.client.HSet(ctx, bookKey(id), fieldData, dataBytes).Err(); err != nil {
		return book, err
	}
	err = rs.client.SAdd(ctx, BooksIndex, id).Err()
	return book, err
}

// GetAll retrieves a list of all books stored in the redis database.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	ids, err := rs.client.SMembers(ctx, BooksIndex).Result()
	if err != nil {
		return nil, err
	}
	books := []Book{}
	for _, id := range ids {
		book, err := rs.GetOne(ctx, id)
		if err == ErrBookNotFound {
			// index can be ahead of a concurrent delete.
			continue
		}
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// IncrementAvailable applies one atomic add on the copies counter and
// returns the new value.
func (rs *redisBookStorage) IncrementAvailable(ctx context.Context, id string, delta int64) (int64, error) {
	exists, err := rs.client.Exists(ctx, bookKey(id)).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, ErrBookNotFound
	}
	return rs.client.HIncrBy(ctx, bookKey(id), fieldAvailable, delta).Result()
}

// SetAssetFlag persists a single presence flag.
func (rs *redisBookStorage) SetAssetFlag(ctx context.Context, id string, kind AssetKind, present bool) error {
	exists, err := rs.client.Exists(ctx, bookKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrBookNotFound
	}
	return rs.client.HSet(ctx, bookKey(id), flagField(kind), boolField(present)).Err()
}

// SetCoverExtension persists the extension the confirmed cover was stored
// under so the read path rebuilds the object key without probing the store.
func (rs *redisBookStorage) SetCoverExtension(ctx context.Context, id, ext string) error {
	exists, err := rs.client.Exists(ctx, bookKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrBookNotFound
	}
	return rs.client.HSet(ctx, bookKey(id), fieldCoverExt, ext).Err()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

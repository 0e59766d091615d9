package main

import "context"

// Book represents a catalog entry. AvailableCopies is mutated only by the
// circulation service through IncrementAvailable, and the three asset
// presence flags only by the asset service through SetAssetFlag. CoverExt
// records the extension the confirmed cover was stored under so the read
// path can rebuild the object key without querying the store. The catalog
// update path rewrites the descriptive fields and leaves all of these alone.
type Book struct {
	ID              string   `json:"id"`
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	Author          string   `json:"author" binding:"required"`
	Genres          []string `json:"genres,omitempty"`
	TotalCopies     int64    `json:"totalCopies"`
	AvailableCopies int64    `json:"availableCopies"`
	HasCover        bool     `json:"hasCover"`
	HasModel        bool     `json:"hasModel"`
	HasPages        bool     `json:"hasPages"`
	CoverExt        string   `json:"coverExt,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

// HasAsset reports whether the presence flag for the given kind is set.
func (b Book) HasAsset(kind AssetKind) bool {
	switch kind {
	case AssetCover:
		return b.HasCover
	case AssetModel:
		return b.HasModel
	case AssetPage:
		return b.HasPages
	}
	return false
}

// BookStorage defines possible operations on book entity. IncrementAvailable
// must be implemented as a single atomic add at the storage layer and return
// the resulting counter value. SetAssetFlag and SetCoverExtension must each
// persist only their own field.
type BookStorage interface {
	Add(ctx context.Context, id string, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, book Book) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	IncrementAvailable(ctx context.Context, id string, delta int64) (int64, error)
	SetAssetFlag(ctx context.Context, id string, kind AssetKind, present bool) error
	SetCoverExtension(ctx context.Context, id, ext string) error
}

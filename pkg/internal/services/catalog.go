package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/cache"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/services/googlebooks"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

const UnknownAuthor = "Unknown author"

type BookInfo struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Thumbnail   string   `json:"thumbnail"`
	IsMature    bool     `json:"is_mature"`
	Placeholder bool     `json:"-"`
}

func (v BookInfo) AuthorLine() string {
	if len(v.Authors) == 0 {
		return UnknownAuthor
	}
	return strings.Join(v.Authors, ", ")
}

func PlaceholderBook(id string) BookInfo {
	return BookInfo{
		ID:          id,
		Title:       fmt.Sprintf("Book (%s)", id),
		Placeholder: true,
	}
}

type BookCatalog interface {
	GetBook(ctx context.Context, id string) (BookInfo, error)
}

var Catalog BookCatalog

// LookupBook never fails, a catalog error degrades to placeholder metadata.
func LookupBook(ctx context.Context, id string) BookInfo {
	if Catalog == nil {
		return PlaceholderBook(id)
	}
	book, err := Catalog.GetBook(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("book", id).Msg("Unable to load book metadata, using placeholder...")
		return PlaceholderBook(id)
	}
	return book
}

// LookupBooks resolves each id independently so one failure only affects its own entry.
func LookupBooks(ctx context.Context, ids []string) []BookInfo {
	return lo.Map(ids, func(id string, _ int) BookInfo {
		return LookupBook(ctx, id)
	})
}

type GoogleBooksCatalog struct {
	endpoint string
	apiKey   string
	ttl      time.Duration
	marshal  *marshaler.Marshaler
}

func NewGoogleBooksCatalog() *GoogleBooksCatalog {
	return &GoogleBooksCatalog{
		endpoint: lo.Ternary(viper.IsSet("catalog.endpoint"), viper.GetString("catalog.endpoint"), googlebooks.DefaultEndpoint),
		apiKey:   viper.GetString("catalog.api_key"),
		ttl:      lo.Ternary(viper.IsSet("catalog.ttl"), viper.GetDuration("catalog.ttl"), 24*time.Hour),
		marshal:  marshaler.New(cache.NewManager()),
	}
}

func GetBookCacheKey(id string) string {
	return fmt.Sprintf("book-volume#%s", id)
}

func (v *GoogleBooksCatalog) GetBook(ctx context.Context, id string) (BookInfo, error) {
	key := GetBookCacheKey(id)
	if val, err := v.marshal.Get(ctx, key, new(BookInfo)); err == nil {
		return *val.(*BookInfo), nil
	}

	volume, err := googlebooks.FetchVolume(ctx, v.endpoint, v.apiKey, id)
	if err != nil {
		return BookInfo{}, err
	}

	book := BookInfo{
		ID:        id,
		Title:     volume.VolumeInfo.Title,
		Authors:   volume.VolumeInfo.Authors,
		Thumbnail: volume.Thumbnail(),
		IsMature:  volume.IsMature(),
	}
	if len(book.Title) == 0 {
		book.Title = PlaceholderBook(id).Title
	}

	_ = v.marshal.Set(
		ctx,
		key,
		book,
		store.WithExpiration(v.ttl),
		store.WithCost(1),
		store.WithTags([]string{"book-volume"}),
	)

	return book, nil
}

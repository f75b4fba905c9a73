package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rommsync/rommsync/internal/adapter"
	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/logger"
)

// SearchTermLength is how many leading characters of the base name are sent as a search term
const SearchTermLength = 10

// Strategy is one way a local item can claim a remote game
type Strategy struct {
	Name  string
	Match func(item domain.LocalSyncItem, game domain.Game) bool
}

// Strategies are evaluated in order for each candidate game
var Strategies = []Strategy{
	{"name equals game name", func(item domain.LocalSyncItem, g domain.Game) bool {
		return item.GameName != "" && strings.EqualFold(g.Name, item.GameName)
	}},
	{"file name equals game name", func(item domain.LocalSyncItem, g domain.Game) bool {
		return item.GameName != "" && strings.EqualFold(g.FsNameNoExt, item.GameName)
	}},
	{"name equals base name", func(item domain.LocalSyncItem, g domain.Game) bool {
		return strings.EqualFold(g.Name, item.BaseName())
	}},
	{"file name equals base name", func(item domain.LocalSyncItem, g domain.Game) bool {
		return strings.EqualFold(g.FsNameNoExt, item.BaseName())
	}},
	{"file name starts with base name", func(item domain.LocalSyncItem, g domain.Game) bool {
		base := item.BaseName()
		return base != "" && strings.HasPrefix(strings.ToLower(g.FsName), strings.ToLower(base))
	}},
}

// MatchGame returns the first game any strategy accepts, in candidate order
func MatchGame(item domain.LocalSyncItem, games []domain.Game) (domain.Game, string, bool) {
	for _, g := range games {
		for _, s := range Strategies {
			if s.Match(item, g) {
				return g, s.Name, true
			}
		}
	}
	return domain.Game{}, "", false
}

// SearchTerm returns the narrowing term for an item: the first runes of its base name
func SearchTerm(item domain.LocalSyncItem) string {
	runes := []rune(item.BaseName())
	if len(runes) > SearchTermLength {
		runes = runes[:SearchTermLength]
	}
	return string(runes)
}

// Resolver finds the remote game a local file belongs to
type Resolver struct {
	api adapter.RemoteAPI
}

// NewResolver creates a resolver querying the given API
func NewResolver(api adapter.RemoteAPI) *Resolver {
	return &Resolver{api: api}
}

// Resolve returns the id of the game owning item.
// Returns domain.ErrPlatformNotFound or domain.ErrGameNotFound when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, item domain.LocalSyncItem) (int, error) {
	platforms, err := r.api.ListPlatforms(ctx)
	if err != nil {
		return 0, fmt.Errorf("list platforms: %w", err)
	}

	platform, ok := matchPlatform(item.Platform, platforms)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrPlatformNotFound, item.Platform)
	}

	term := SearchTerm(item)
	games, err := r.api.SearchGames(ctx, platform.ID, term)
	if err != nil {
		return 0, fmt.Errorf("search games: %w", err)
	}

	game, strategy, ok := MatchGame(item, games)
	if !ok {
		return 0, fmt.Errorf("%w: %s (%d candidates)", domain.ErrGameNotFound, item.FileName, len(games))
	}

	logger.Get().Debug("Resolved game",
		"file", item.FileName,
		"platform_id", platform.ID,
		"game_id", game.ID,
		"strategy", strategy,
	)
	return game.ID, nil
}

func matchPlatform(slug string, platforms []domain.Platform) (domain.Platform, bool) {
	for _, p := range platforms {
		if strings.EqualFold(p.Slug, slug) || strings.EqualFold(p.DisplayName, slug) {
			return p, true
		}
	}
	return domain.Platform{}, false
}

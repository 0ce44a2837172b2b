package collection

import (
	"context"
	"fmt"

	"github.com/davesrecords/davesrecords/internal/discogs"
	"github.com/davesrecords/davesrecords/model"
	"github.com/davesrecords/davesrecords/params"
)

type ConnectionLister interface {
	GetConnections(ctx context.Context, userID uint) ([]*model.DiscogsConnection, error)
}

// ReleaseLister is the part of the Discogs client used to read collections.
type ReleaseLister interface {
	CollectionReleases(ctx context.Context, username string, page, perPage int) (*discogs.CollectionPage, error)
}

// ClientFactory builds a client authorized as conn.
type ClientFactory func(ctx context.Context, conn *model.DiscogsConnection) (ReleaseLister, error)

// DiscogsSource reads collections from the Discogs API. It loads every upstream
// page, drops excluded albums and then slices the requested page, so public
// pages never contain excluded albums and are never short.
type DiscogsSource struct {
	connections ConnectionLister
	exclusions  ExclusionRepository
	newClient   ClientFactory
	maxPages    int
}

func pickConnection(conns []*model.DiscogsConnection, requestedID uint) *model.DiscogsConnection {
	if requestedID != 0 {
		for _, conn := range conns {
			if conn.ID == requestedID {
				return conn
			}
		}
	}
	for _, conn := range conns {
		if conn.IsPrimary {
			return conn
		}
	}
	return conns[0]
}

func toAlbum(release discogs.CollectionRelease) Album {
	info := release.BasicInformation
	album := Album{
		ID:         release.ID,
		InstanceID: release.InstanceID,
		Title:      info.Title,
		Year:       info.Year,
		Thumb:      info.Thumb,
		CoverImage: info.CoverImage,
		Genres:     info.Genres,
		Styles:     info.Styles,
		DateAdded:  release.DateAdded,
	}
	for _, artist := range info.Artists {
		album.Artists = append(album.Artists, artist.Name)
	}
	for _, format := range info.Formats {
		album.Formats = append(album.Formats, format.Name)
	}
	for _, label := range info.Labels {
		album.Labels = append(album.Labels, label.Name)
	}
	return album
}

func (s *DiscogsSource) fetchAll(ctx context.Context, client ReleaseLister, username string) ([]Album, error) {
	var albums []Album
	for page := 1; page <= s.maxPages; page++ {
		resp, err := client.CollectionReleases(ctx, username, page, params.DiscogsPerPage)
		if err != nil {
			return nil, err
		}
		for _, release := range resp.Releases {
			albums = append(albums, toAlbum(release))
		}
		if page >= resp.Pagination.Pages {
			break
		}
	}
	return albums, nil
}

func paginate(albums []Album, page, pageSize int) ([]Album, Pagination) {
	items := len(albums)
	pages := (items + pageSize - 1) / pageSize
	start := items
	if page-1 < pages {
		start = (page - 1) * pageSize
	}
	end := start + pageSize
	if end > items {
		end = items
	}
	return albums[start:end:end], Pagination{Page: page, Pages: pages, Items: items, PerPage: pageSize}
}

func (s *DiscogsSource) FetchPage(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	conns, err := s.connections.GetConnections(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list connections of user %d: %w", req.OwnerID, err)
	}
	if len(conns) == 0 {
		return &FetchResult{
			Albums:     []Album{},
			Pagination: Pagination{Page: req.Page, PerPage: req.PageSize},
		}, nil
	}
	conn := pickConnection(conns, req.ConnectionID)

	excluded, err := s.exclusions.ListReleaseIDs(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list exclusions of user %d: %w", req.OwnerID, err)
	}

	client, err := s.newClient(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: connection %d: %w", ErrUpstream, conn.ID, err)
	}
	albums, err := s.fetchAll(ctx, client, conn.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch collection of %s: %w", ErrUpstream, conn.Username, err)
	}

	if !req.IncludeExcluded && len(excluded) > 0 {
		skip := make(map[uint64]struct{}, len(excluded))
		for _, id := range excluded {
			skip[id] = struct{}{}
		}
		visible := albums[:0:0]
		for _, album := range albums {
			if _, ok := skip[album.ID]; !ok {
				visible = append(visible, album)
			}
		}
		albums = visible
	}

	pageAlbums, pagination := paginate(albums, req.Page, req.PageSize)
	result := &FetchResult{
		Albums:         pageAlbums,
		Pagination:     pagination,
		ConnectionID:   conn.ID,
		ConnectionName: conn.Username,
	}
	if req.IncludeExcluded {
		result.ExcludedIDs = excluded
	}
	return result, nil
}

func NewDiscogsSource(connections ConnectionLister, exclusions ExclusionRepository, newClient ClientFactory) *DiscogsSource {
	return &DiscogsSource{
		connections: connections,
		exclusions:  exclusions,
		newClient:   newClient,
		maxPages:    params.DiscogsMaxCollectionPages,
	}
}

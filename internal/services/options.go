package services

import "github.com/jsbattig/share-things-sub002/internal/snapshot"

// Option configures optional collaborators of the ContentService.
type Option func(*ContentService)

// WithSnapshot persists metadata records across restarts.
func WithSnapshot(s *snapshot.Store) Option {
	return func(c *ContentService) { c.snap = s }
}

// WithPublisher enables the send path.
func WithPublisher(p Publisher) Option {
	return func(c *ContentService) { c.publisher = p }
}

// WithPresigner enables the large-external upload path.
func WithPresigner(p Presigner) Option {
	return func(c *ContentService) { c.presigner = p }
}

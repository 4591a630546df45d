package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Timeline() TimelineRepository
	Article() ArticleRepository

	Close() error
}

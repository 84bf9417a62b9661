package repositories

import "context"

// Repository aggregates the console repositories
type Repository interface {
	Profile() ProfileRepository
	Course() CourseRepository
	Assignment() AssignmentRepository
	Submission() SubmissionRepository
	Message() MessageRepository
	Discussion() DiscussionRepository
	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	GetRepository() Repository

	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}

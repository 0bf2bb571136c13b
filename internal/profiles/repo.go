package profiles

import "context"

// Repo defines persistence operations for profiles. Labels are unique.
type Repo interface {
	Create(ctx context.Context, p Profile) error
	GetByID(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Update(ctx context.Context, p Profile) error
	Delete(ctx context.Context, id string) error
}

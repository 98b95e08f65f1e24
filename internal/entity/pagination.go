package entity

// MaxPageSize caps every listing so a single request cannot pull whole tables.
const MaxPageSize = 100

type PaginationInput struct {
	Limit  int
	Offset int
}

// NewPaginationInput clamps limit to (0, MaxPageSize] and offset to >= 0.
// A non-positive limit means "no explicit limit" and is raised to MaxPageSize.
func NewPaginationInput(limit int, offset int) *PaginationInput {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return &PaginationInput{
		Limit:  limit,
		Offset: offset,
	}
}

// Package catalog defines the port to the external Content Catalog: the
// read-only store of solution methods and problem content. The engine only
// uses it to annotate next-problem specs; catalog data never feeds
// estimator math.
package catalog

import (
	"context"

	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// MethodID identifies a solution method in the catalog.
type MethodID string

// String returns the string representation.
func (m MethodID) String() string {
	return string(m)
}

// Catalog is the consumed Content Catalog interface.
type Catalog interface {
	// ListApplicableMethods returns the solution methods applicable to a
	// subject/topic at a grade level.
	ListApplicableMethods(ctx context.Context, subject shared.Subject, topic shared.Topic, grade shared.GradeLevel) ([]MethodID, error)
}

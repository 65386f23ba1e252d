// Package properties manages property listings and keeps their image
// references in step with the blobs in the image store.
package properties

import (
	"fmt"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/validation"
)

// Plan is the outcome of reconciling a property's image list.
type Plan struct {
	// Final is the image list to persist.
	Final []string
	// Orphaned are current refs that must be removed after Final is persisted.
	Orphaned []string
}

// Reconcile computes the new image list from the stored list, the refs the
// client wants to keep and freshly uploaded refs. Kept images stay in their
// stored order and new uploads are appended in upload order.
func Reconcile(current, keep, uploaded []string) (Plan, error) {
	inCurrent := make(map[string]bool, len(current))
	for _, ref := range current {
		inCurrent[ref] = true
	}

	keepSet := make(map[string]bool, len(keep))
	for _, ref := range keep {
		if !inCurrent[ref] {
			return Plan{}, validation.Field("existingImages", fmt.Sprintf("image %q does not belong to this property", ref))
		}
		keepSet[ref] = true
	}

	final := make([]string, 0, len(keepSet)+len(uploaded))
	orphaned := []string{}
	seen := make(map[string]bool, len(current))
	for _, ref := range current {
		if seen[ref] {
			continue
		}
		seen[ref] = true

		if keepSet[ref] {
			final = append(final, ref)
		} else {
			orphaned = append(orphaned, ref)
		}
	}
	final = append(final, uploaded...)

	if err := checkImageCount(len(final)); err != nil {
		return Plan{}, err
	}

	return Plan{Final: final, Orphaned: orphaned}, nil
}

// checkImageCount: у объекта всегда от 1 до MaxPropertyImages изображений
func checkImageCount(n int) error {
	switch {
	case n == 0:
		return validation.Field("images", "at least one image is required")
	case n > models.MaxPropertyImages:
		return validation.Field("images", fmt.Sprintf("a property can have at most %d images", models.MaxPropertyImages))
	}
	return nil
}

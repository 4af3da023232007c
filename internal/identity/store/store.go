// Package store maps local identities to partner identifiers and resolves the
// structure each counsellor works for.
package store

import (
	"fmt"

	"youthsessions/internal/sentinel"
)

// Youth links a local individual to their partner dossier id.
type Youth struct {
	ID        string
	PartnerID string
}

// Counsellor records the structure a counsellor belongs to.
type Counsellor struct {
	ID          string
	StructureID string
	Timezone    string
}

func errCounsellorNotFound(counsellorID string) error {
	return fmt.Errorf("counsellor %s has no structure: %w", counsellorID, sentinel.ErrNotFound)
}

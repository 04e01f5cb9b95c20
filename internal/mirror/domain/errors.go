package domain

import "fmt"

// MappingError reports a source payload whose primary key (or parent key for
// owned rows) is absent or malformed. Any other field defect degrades to a
// typed zero or NULL instead.
type MappingError struct {
	Entity string
	Detail string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map %s: %s", e.Entity, e.Detail)
}

// StorageError reports a failed batch flush. The transaction was rolled back;
// nothing from the batch was committed.
type StorageError struct {
	Entity   string
	BatchLen int
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("flush of %d %s rows failed: %v", e.BatchLen, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

package exam

import "github.com/omrkit/omrkit/internal/model"

// SubjectFor returns the subject whose range contains question q. Ranges are
// contiguous and non-overlapping for any key that passed ValidateKey, so the
// first hit is the only hit.
func SubjectFor(q int, subjects []model.SubjectRange) (string, error) {
	for _, r := range subjects {
		if r.Contains(q) {
			return r.Subject, nil
		}
	}
	return "", &ConfigError{Question: q}
}

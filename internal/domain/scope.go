package domain

// Scope describes which files a retrieval operation may touch. An
// unrestricted scope spans the whole tenant subject to the caller's
// access allowlist; a restricted scope names explicit file IDs derived
// from user-selected files or expanded folder contents.
type Scope struct {
	TenantID string
	// FileIDs is the explicit restriction set. Empty means unrestricted.
	FileIDs []string
	// ExcludeMail drops mail-sync files from the result set.
	ExcludeMail bool
}

// IsRestricted returns true if the scope names explicit files
func (s Scope) IsRestricted() bool {
	return len(s.FileIDs) > 0
}

// IsSingleFile returns true if the scope is restricted to exactly one
// file. Single-file queries skip HyDE expansion and champion detection.
func (s Scope) IsSingleFile() bool {
	return len(s.FileIDs) == 1
}

// Contains reports whether fileID is reachable under this scope.
// Unrestricted scopes contain everything.
func (s Scope) Contains(fileID string) bool {
	if !s.IsRestricted() {
		return true
	}
	for _, id := range s.FileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}

// Restrict intersects the scope with an access allowlist and returns
// the narrowed scope. Used for non-admin callers whose keys only grant
// a subset of the tenant's files. Callers must reject an empty
// allowlist up front (ErrNoSearchSurface) instead of calling Restrict.
func (s Scope) Restrict(allowed []string) Scope {
	if !s.IsRestricted() {
		out := s
		out.FileIDs = append([]string(nil), allowed...)
		return out
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = struct{}{}
	}
	out := Scope{TenantID: s.TenantID, ExcludeMail: s.ExcludeMail}
	for _, id := range s.FileIDs {
		if _, ok := allowedSet[id]; ok {
			out.FileIDs = append(out.FileIDs, id)
		}
	}
	return out
}

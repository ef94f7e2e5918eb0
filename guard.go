package factory

// Authorized reports whether caller is the record's admin. There is no
// delegation: only an exact identity match passes.
func Authorized(rec Record, caller Identity) bool {
	return !rec.Admin.IsUnset() && rec.Admin == caller
}

// requireAdmin is called by every mutator before any field validation.
func requireAdmin(rec Record, caller Identity) error {
	if Authorized(rec, caller) {
		return nil
	}
	return &UnauthorizedError{Caller: caller, Admin: rec.Admin}
}

package utils

// BuildStatementsListCacheKey keys the cached first page of an owner's
// statement list. Only the default first page is cached, so the owner id
// is the only variable part.
func BuildStatementsListCacheKey(ownerID string) string {
	return "statements:list:v1:user=" + ownerID
}

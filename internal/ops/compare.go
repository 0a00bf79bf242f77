package ops

import (
	"github.com/studio1767/s3site/internal/s3io"
)

// Matches reports whether remote already holds the local content with the
// headers an upload would set. An empty inferred content type accepts
// whatever type the remote object has.
func Matches(local *Entry, contentType, contentEncoding string, remote *s3io.Object) bool {
	if remote == nil {
		return false
	}
	if remote.Fingerprint == "" || remote.Fingerprint != local.Fingerprint {
		return false
	}
	if contentType != "" && remote.ContentType != contentType {
		return false
	}
	return remote.ContentEncoding == contentEncoding
}

// IsPublicRead reports whether the policy consists of exactly the owner's
// FULL_CONTROL grant and a READ grant for all users.
func IsPublicRead(policy *s3io.AccessPolicy) bool {
	if policy == nil || len(policy.Grants) != 2 {
		return false
	}

	ownerOk := false
	publicOk := false
	for _, grant := range policy.Grants {
		switch {
		case grant.GranteeID != "" && grant.GranteeID == policy.OwnerID:
			ownerOk = grant.Permission == "FULL_CONTROL"
			if !ownerOk {
				return false
			}
		case grant.GranteeType == "Group":
			publicOk = grant.GranteeURI == s3io.AllUsersURI && grant.Permission == "READ"
			if !publicOk {
				return false
			}
		default:
			return false
		}
	}

	return ownerOk && publicOk
}

package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studio1767/s3site/internal/ops"
	"github.com/studio1767/s3site/internal/s3io"
)

func TestMatches(t *testing.T) {
	local := &ops.Entry{RelPath: "a.css", Fingerprint: "abc"}
	remote := func(fp, ctype, encoding string) *s3io.Object {
		return &s3io.Object{Key: "a.css", Fingerprint: fp, ContentType: ctype, ContentEncoding: encoding}
	}

	tests := []struct {
		name     string
		ctype    string
		encoding string
		remote   *s3io.Object
		matches  bool
	}{
		{"Missing", "text/css", "", nil, false},
		{"Same", "text/css", "", remote("abc", "text/css", ""), true},
		{"Content", "text/css", "", remote("abd", "text/css", ""), false},
		{"NoFingerprint", "text/css", "", remote("", "text/css", ""), false},
		{"Type", "text/css", "", remote("abc", "text/plain", ""), false},
		{"UnknownType", "", "", remote("abc", "binary/octet-stream", ""), true},
		{"Encoding", "text/css", "gzip", remote("abc", "text/css", ""), false},
		{"StaleEncoding", "text/css", "", remote("abc", "text/css", "gzip"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.matches, ops.Matches(local, tc.ctype, tc.encoding, tc.remote))
		})
	}
}

func TestIsPublicRead(t *testing.T) {
	owner := s3io.Grant{GranteeID: "me", GranteeType: "CanonicalUser", Permission: "FULL_CONTROL"}
	public := s3io.Grant{GranteeType: "Group", GranteeURI: s3io.AllUsersURI, Permission: "READ"}

	tests := []struct {
		name   string
		grants []s3io.Grant
		ok     bool
	}{
		{"PublicRead", []s3io.Grant{owner, public}, true},
		{"ReverseOrder", []s3io.Grant{public, owner}, true},
		{"Private", []s3io.Grant{owner}, false},
		{"PublicWrite", []s3io.Grant{owner, {GranteeType: "Group", GranteeURI: s3io.AllUsersURI, Permission: "WRITE"}}, false},
		{"OwnerReadOnly", []s3io.Grant{{GranteeID: "me", GranteeType: "CanonicalUser", Permission: "READ"}, public}, false},
		{"AuthenticatedUsers", []s3io.Grant{owner, {GranteeType: "Group", GranteeURI: "http://acs.amazonaws.com/groups/global/AuthenticatedUsers", Permission: "READ"}}, false},
		{"Extra", []s3io.Grant{owner, public, {GranteeID: "you", GranteeType: "CanonicalUser", Permission: "READ"}}, false},
		{"OtherUser", []s3io.Grant{{GranteeID: "you", GranteeType: "CanonicalUser", Permission: "FULL_CONTROL"}, public}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			policy := &s3io.AccessPolicy{OwnerID: "me", Grants: tc.grants}
			require.Equal(t, tc.ok, ops.IsPublicRead(policy))
		})
	}

	require.False(t, ops.IsPublicRead(nil))
}

func TestChangeSet(t *testing.T) {
	cs := ops.NewChangeSet()
	require.True(t, cs.Add("b.html"))
	require.True(t, cs.Add("a.html"))
	require.False(t, cs.Add("b.html"))
	require.Equal(t, 2, cs.Len())
	require.Equal(t, []string{"b.html", "a.html"}, cs.Keys())
}

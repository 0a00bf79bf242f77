package ops_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studio1767/s3site/internal/ops"
)

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	report := ops.NewReport(&buf)

	require.NoError(t, report.Record("index.html", ops.Uploaded, 120, "abc"))
	require.NoError(t, report.Record("blog/my post.html", ops.Unchanged, 30, "def"))
	require.NoError(t, report.Record("logo.png", ops.AccessRepaired, 1000, "123"))
	require.NoError(t, report.Record("gone.html", ops.Deleted, 7, "456"))

	require.Equal(t, "uploaded,120,abc,index.html\n"+
		"unchanged,30,def,blog%2Fmy%20post.html\n"+
		"repaired,1000,123,logo.png\n"+
		"deleted,7,456,gone.html\n", buf.String())

	require.Equal(t, 4, report.Total())
	require.Equal(t, 1, report.Count(ops.Uploaded))
	require.Equal(t, int64(1120), report.BytesUploaded())
}

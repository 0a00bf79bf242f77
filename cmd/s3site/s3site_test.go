package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/studio1767/s3site/internal/cdn"
	"github.com/studio1767/s3site/internal/fault"
	"github.com/studio1767/s3site/internal/job"
	"github.com/studio1767/s3site/internal/ops"
	"github.com/studio1767/s3site/internal/site"
)

func parse(t *testing.T, argv ...string) (*job.Job, error) {
	opts := newOptions()
	var runErr error
	cmd := newCommand(opts, log.New(), &runErr)

	require.NoError(t, cmd.ParseFlags(argv))
	return resolveJob(cmd, opts, cmd.Flags().Args())
}

func TestResolveJobDefaults(t *testing.T) {
	j, err := parse(t, "https://www.example.com/", "public")
	require.NoError(t, err)
	require.Equal(t, "www.example.com", j.HostName)
	require.Equal(t, "public", j.Folder)
	require.Equal(t, "index.html", j.Index)
	require.Equal(t, "4xx.html", j.ErrorPage)
	require.Equal(t, 4, j.Workers)
	require.False(t, j.NoCDN)
}

func TestResolveJobPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yml")
	require.NoError(t, os.WriteFile(path, []byte("index: home.html\nworkers: 8\nno_cdn: true\n"), 0600))

	j, err := parse(t, "--config", path, "--workers", "2", "--error-page", "", "www.example.com", "public")
	require.NoError(t, err)

	// from the file
	require.Equal(t, "home.html", j.Index)
	require.True(t, j.NoCDN)

	// flags win over the file
	require.Equal(t, 2, j.Workers)
	require.Equal(t, "", j.ErrorPage)
}

func TestResolveJobInvalid(t *testing.T) {
	_, err := parse(t, "--workers", "0", "www.example.com", "public")
	require.True(t, fault.IsUserError(err))
}

func TestPrintSummary(t *testing.T) {
	report := ops.NewReport(nil)
	require.NoError(t, report.Record("index.html", ops.Uploaded, 2048, "abc"))
	require.NoError(t, report.Record("gone.html", ops.Deleted, 10, "def"))

	var buf bytes.Buffer
	printSummary(&buf, &site.Result{
		Bucket:       "www.example.com",
		Region:       "us-east-1",
		Distribution: &cdn.Distribution{ID: "E123", DomainName: "d123.cloudfront.net"},
		Report:       report,
		Changes:      []string{"gone.html"},
		Batches:      1,
	})

	out := buf.String()
	require.Contains(t, out, "distribution: E123 (d123.cloudfront.net)")
	require.Contains(t, out, "uploaded: 1 (2.0 kB)")
	require.Contains(t, out, "deleted: 1")
	require.Contains(t, out, "invalidated: 1 keys in 1 batches")
}

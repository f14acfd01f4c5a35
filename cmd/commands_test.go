package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/spamprint/internal/account"
	"firestige.xyz/spamprint/internal/config"
	"firestige.xyz/spamprint/internal/digest"
	"firestige.xyz/spamprint/internal/log"
	"firestige.xyz/spamprint/internal/metrics"
	"firestige.xyz/spamprint/internal/protocol"
	"firestige.xyz/spamprint/internal/runner"
)

const message = "From: spammer@example.com\nSubject: cheap\n\nbuy cheap watches today\nlimited offer for you\n"

func messageDigest(t *testing.T) string {
	t.Helper()
	d, ok, err := digest.Sum(strings.NewReader("buy cheap watches today\nlimited offer for you\n"), digest.DefaultPlan)
	require.NoError(t, err)
	require.True(t, ok)
	return d
}

var (
	serverA = account.Address{Host: "127.0.0.1", Port: 24441}
	serverB = account.Address{Host: "127.0.0.1", Port: 24442}
)

type harness struct {
	s      *session
	client *MockClient
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(format string, input string, addrs ...account.Address) *harness {
	h := &harness{client: &MockClient{}, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	h.s = &session{
		client:  h.client,
		servers: addrs,
		plan:    digest.DefaultPlan,
		format:  format,
		in:      strings.NewReader(input),
		out:     h.out,
		errOut:  h.errOut,
		log:     log.GetLogger(),
	}
	return h
}

func TestRunCheckHit(t *testing.T) {
	fp := messageDigest(t)
	h := newHarness(runner.FormatText, message, serverA, serverB)
	h.client.On("Check", mock.Anything, fp, serverA).
		Return(reply("200", "OK", "Count", "3", "WL-Count", "0"), nil)
	h.client.On("Check", mock.Anything, fp, serverB).
		Return(nil, errors.New("spamprint: timeout waiting for server reply: no reply"))

	ok, err := runCheck(context.Background(), h.s, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:24441\t(200, 'OK')\t3\t0\n", h.out.String())
	assert.Equal(t, "127.0.0.1:24442\tspamprint: timeout waiting for server reply: no reply\n", h.errOut.String())
	h.client.AssertExpectations(t)
}

func TestRunCheckWhitelisted(t *testing.T) {
	fp := messageDigest(t)
	h := newHarness(runner.FormatText, message, serverA, serverB)
	h.client.On("Check", mock.Anything, fp, serverA).
		Return(reply("200", "OK", "Count", "3", "WL-Count", "0"), nil)
	h.client.On("Check", mock.Anything, fp, serverB).
		Return(reply("200", "OK", "Count", "9", "WL-Count", "1"), nil)

	ok, err := runCheck(context.Background(), h.s, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, h.out.String(), "127.0.0.1:24442\t(200, 'OK')\t0\t1\n")
}

func TestRunCheckEmptyMessage(t *testing.T) {
	h := newHarness(runner.FormatText, "Subject: empty\n\n", serverA)

	ok, err := runCheck(context.Background(), h.s, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, h.out.String())
	h.client.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCheckJSONReport(t *testing.T) {
	fp := messageDigest(t)
	h := newHarness(runner.FormatJSON, message, serverA)
	h.client.On("Check", mock.Anything, fp, serverA).
		Return(reply("200", "OK", "Count", "2", "WL-Count", "0"), nil)

	ok, err := runCheck(context.Background(), h.s, false)
	require.NoError(t, err)
	assert.True(t, ok)

	var rep runner.Report
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &rep))
	assert.Equal(t, "check", rep.Command)
	assert.True(t, rep.Success)
	assert.Equal(t, []string{fp}, rep.Digests)
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, "127.0.0.1:24441", rep.Outcomes[0].Server)
	require.NotNil(t, rep.Outcomes[0].Count)
	assert.EqualValues(t, 2, *rep.Outcomes[0].Count)
}

func TestRunSubmitReportArchive(t *testing.T) {
	archive := "From a@example.com Mon Jan  1 00:00:00 2024\nSubject: one\n\nfirst message body text\n\n" +
		"From b@example.com Mon Jan  1 00:00:01 2024\nSubject: two\n\nsecond message body text\n"
	h := newHarness(runner.FormatText, archive, serverA)
	h.client.On("Report", mock.Anything, mock.Anything, digest.DefaultPlan, serverA).
		Return(reply("200", "OK"), nil).Twice()

	ok, err := runSubmit(context.Background(), h.s, protocol.OpReport, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:24441\t(200, 'OK')\n127.0.0.1:24441\t(200, 'OK')\n", h.out.String())
	h.client.AssertNumberOfCalls(t, "Report", 2)
	h.client.AssertNotCalled(t, "Whitelist", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunSubmitWhitelistRejected(t *testing.T) {
	fp := messageDigest(t)
	h := newHarness(runner.FormatText, message, serverA)
	h.client.On("Whitelist", mock.Anything, fp, digest.DefaultPlan, serverA).
		Return(reply("401", "Unauthorized"), nil)

	ok, err := runSubmit(context.Background(), h.s, protocol.OpWhitelist, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "127.0.0.1:24441\t(401, 'Unauthorized')\n", h.out.String())
}

func TestRunInfo(t *testing.T) {
	fp := messageDigest(t)
	h := newHarness(runner.FormatText, message, serverA)
	h.client.On("Info", mock.Anything, fp, serverA).
		Return(reply("200", "OK", "Count", "0", "WL-Count", "0"), nil)

	ok, err := runInfo(context.Background(), h.s, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:24441\t(200, 'OK')\n\tCount: 0\n", h.out.String())
}

func TestRunPingAndShutdown(t *testing.T) {
	h := newHarness(runner.FormatText, "", serverA, serverB)
	h.client.On("Ping", mock.Anything, serverA).Return(reply("200", "OK"), nil)
	h.client.On("Ping", mock.Anything, serverB).Return(reply("200", "OK"), nil)

	ok, err := runPing(context.Background(), h.s, h.s.servers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:24441\t(200, 'OK')\n127.0.0.1:24442\t(200, 'OK')\n", h.out.String())

	h.client.On("Shutdown", mock.Anything, serverA).Return(reply("403", "Forbidden"), nil)
	ok, err = runShutdown(context.Background(), h.s, []account.Address{serverA})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunPingNoServers(t *testing.T) {
	h := newHarness(runner.FormatText, "")
	_, err := runPing(context.Background(), h.s, nil)
	assert.EqualError(t, err, "no servers to ping")
}

func TestRunDigestYAML(t *testing.T) {
	h := newHarness(runner.FormatYAML, message)
	require.NoError(t, runDigest(h.s, false))
	assert.Equal(t, "command: digest\nsuccess: true\ndigests:\n  - "+messageDigest(t)+"\n", h.out.String())
}

func TestSucceed(t *testing.T) {
	assert.NoError(t, succeed(true, nil))
	assert.ErrorIs(t, succeed(false, nil), ErrUnsuccessful)
	boom := errors.New("boom")
	assert.ErrorIs(t, succeed(true, boom), boom)
}

func TestRunGenkey(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 20)
	answers := []string{"secret", "secret"}
	read := func(string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}

	var out, errOut bytes.Buffer
	ok, err := runGenkey(&out, &errOut, read, bytes.NewReader(seed))
	require.NoError(t, err)
	assert.True(t, ok)

	want, err := account.GenerateKeystuff("secret", bytes.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, "salt,key:\n"+want.String()+"\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestRunGenkeyMismatch(t *testing.T) {
	answers := []string{"secret", "other"}
	read := func(string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}

	var out, errOut bytes.Buffer
	ok, err := runGenkey(&out, &errOut, read, bytes.NewReader(make([]byte, 20)))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out.String())
	assert.Equal(t, "Passwords do not match.\n", errOut.String())
}

func TestRunDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "127.0.0.1:24441\n# comment\n127.0.0.1:24442\n")
	}))
	defer srv.Close()

	cfg := config.Default(t.TempDir())
	cfg.Client.DiscoverServersURL = srv.URL

	var out, errOut bytes.Buffer
	require.NoError(t, runDiscover(context.Background(), cfg, &out, &errOut, log.GetLogger()))
	assert.Equal(t, "2 servers available\n", out.String())
	assert.Equal(t, "downloading servers from "+srv.URL+"\n", errOut.String())

	data, err := os.ReadFile(cfg.ServersPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "127.0.0.1:24442")
}

func TestLoadServersDownloadsWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "# nothing here\n")
	}))
	defer srv.Close()

	cfg := config.Default(t.TempDir())
	cfg.Client.DiscoverServersURL = srv.URL

	var errOut bytes.Buffer
	_, err := loadServers(context.Background(), cfg, &errOut, log.GetLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maybe try the 'discover' command")
	assert.Contains(t, errOut.String(), "downloading servers from")
}

// execute runs the root command with a fresh home directory.
func execute(t *testing.T, home, input string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--homedir", home, "--format", "text", "--debug=false"}, args...))
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestDigestCommand(t *testing.T) {
	out, _, err := execute(t, t.TempDir(), message, "digest", "--mbox=false")
	require.NoError(t, err)
	assert.Equal(t, messageDigest(t)+"\n", out)
}

func TestCheckCommand(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "servers"), []byte("127.0.0.1:24441\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(home, "accounts"),
		[]byte("127.0.0.1 : 24441 : alice : d28f86151e80a9accba4a4eba81c460532384cd6,fc7f1cad729b5f3862b2ef192e2d9e0d0d4bd515\n"), 0o600))

	fp := messageDigest(t)
	m := &MockClient{}
	m.On("Check", mock.Anything, fp, serverA).
		Return(reply("200", "OK", "Count", "0", "WL-Count", "0"), nil)
	m.On("Close").Return(nil)

	var gotAccounts account.Accounts
	prev := SetClientFactory(func(cfg *config.Config, accounts account.Accounts, _ log.Logger, _ *metrics.Metrics) (Client, error) {
		gotAccounts = accounts
		return m, nil
	})
	defer SetClientFactory(prev)

	out, _, err := execute(t, home, message, "check")
	assert.ErrorIs(t, err, ErrUnsuccessful)
	assert.Equal(t, "127.0.0.1:24441\t(200, 'OK')\t0\t0\n", out)
	assert.Equal(t, "alice", gotAccounts.Lookup(serverA).Username())
	m.AssertExpectations(t)
}

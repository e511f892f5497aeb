package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ptgott/fluentmail/smtptest"
	"github.com/ptgott/fluentmail/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns what it printed.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestRender(t *testing.T) {
	testCases := []struct {
		description   string
		body          string
		args          []string
		expected      string
		shouldBeError bool
	}{
		{
			description: "default delimiters",
			body:        "<p>Hello, {{name}}!</p>",
			args:        []string{"--set", "name=World"},
			expected:    "<p>Hello, World!</p>\n",
		},
		{
			description: "custom delimiter",
			body:        "<p>Hello, $name$!</p>",
			args:        []string{"--set", "name=World", "--delimiter", "$"},
			expected:    "<p>Hello, World!</p>\n",
		},
		{
			description: "value containing an equals sign",
			body:        "{{expr}}",
			args:        []string{"--set", "expr=a=b", "--type", "text/plain"},
			expected:    "a=b\n",
		},
		{
			description: "later set wins",
			body:        "{{name}}",
			args:        []string{"--set", "name=first", "--set", "name=second"},
			expected:    "second\n",
		},
		{
			description: "plain text alternative",
			body:        "<p>Hello, {{name}}!</p>",
			args:        []string{"--set", "name=World", "--alt-text"},
			expected:    "<p>Hello, World!</p>\n-----\nHello, World!\n",
		},
		{
			description:   "set without a value",
			body:          "{{name}}",
			args:          []string{"--set", "name"},
			shouldBeError: true,
		},
		{
			description:   "delimiter too long",
			body:          "%%name%%",
			args:          []string{"--set", "name=x", "--delimiter", "%%"},
			shouldBeError: true,
		},
		{
			description:   "unresolved tag",
			body:          "{{name}} {{other}}",
			args:          []string{"--set", "name=x"},
			shouldBeError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			p := writeFile(t, "body.html", tc.body)
			args := append([]string{"render", "--body-file", p}, tc.args...)

			out, err := run(t, "", args...)
			if (err != nil) != tc.shouldBeError {
				t.Fatalf(
					"%v: unexpected error status: wanted %v but got %v with error %v",
					tc.description,
					tc.shouldBeError,
					err != nil,
					err,
				)
			}
			if !tc.shouldBeError {
				assert.Equal(t, tc.expected, out)
			}
		})
	}
}

func TestRenderFromStdin(t *testing.T) {
	out, err := run(t, "Hi {{who}}", "render", "--body-file", "-", "--set", "who=there")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)
}

func TestSendDryRun(t *testing.T) {
	conf := writeFile(t, "config.yaml", `smtp:
    host: smtp.example.com
    auth: tls
    username: me
    password: secret`)
	body := writeFile(t, "body.html", "<p>Hello, {{name}}!</p>")

	out, err := run(t, "",
		"send",
		"--config", conf,
		"--dry-run",
		"--from", "Me <me@example.com>",
		"--to", "you@example.com",
		"--bcc", "hidden@example.com",
		"--subject", "Dry run",
		"--body-file", body,
		"--set", "name=World",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "# Bcc: hidden@example.com")
	assert.Contains(t, out, "Subject: Dry run")
	assert.Contains(t, out, "To: you@example.com")
	assert.Contains(t, out, "<p>Hello, World!</p>")
}

func TestSendValidation(t *testing.T) {
	conf := writeFile(t, "config.yaml", "transport: stdout")

	testCases := []struct {
		description string
		args        []string
	}{
		{
			description: "no recipients",
			args:        []string{"--from", "me@example.com"},
		},
		{
			description: "no sender",
			args:        []string{"--to", "you@example.com"},
		},
		{
			description: "bad address",
			args:        []string{"--from", "me@example.com", "--to", "not an address"},
		},
		{
			description: "missing attachment",
			args: []string{
				"--from", "me@example.com",
				"--to", "you@example.com",
				"--attach", filepath.Join(t.TempDir(), "missing.pdf"),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			args := append([]string{"send", "--config", conf}, tc.args...)
			out, err := run(t, "", args...)
			assert.Error(t, err)
			assert.NotContains(t, out, "Subject:", "nothing should be written")
		})
	}
}

func TestSendMissingConfig(t *testing.T) {
	_, err := run(t, "",
		"send",
		"--config", filepath.Join(t.TempDir(), "nope.yaml"),
		"--from", "me@example.com",
		"--to", "you@example.com",
	)
	assert.Error(t, err)
}

func TestSendOverSMTPWithJournal(t *testing.T) {
	key, cert, err := smtptest.GenerateTLSFiles(t)
	require.NoError(t, err)
	srv := smtptest.NewInProcessServer(key, cert, smtptest.Options{AllowAnonymous: true})
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	journalDir := t.TempDir()
	conf := writeFile(t, "config.yaml", fmt.Sprintf(`smtp:
    host: %v
    port: %v
    skipCertVerification: true
journal:
    storageDir: %v`, srv.Host(), srv.Port(), journalDir))
	attachment := writeFile(t, "notes.txt", "remember the milk")

	_, err = run(t, "<p>Hello, {{name}}!</p>",
		"send",
		"--config", conf,
		"--from", "sender@example.com",
		"--to", "to@example.com",
		"--cc", "cc@example.com",
		"--subject", "From the CLI",
		"--body-file", "-",
		"--set", "name=World",
		"--attach", attachment,
	)
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.ElementsMatch(t, []string{"to@example.com", "cc@example.com"}, msgs[0].Recipients)

	p, err := smtptest.ParseEmail(msgs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "From the CLI", p.Subject())
	part, ok := p.Body("text/html")
	require.True(t, ok)
	assert.Equal(t, "<p>Hello, World!</p>", string(part.Body))
	a := p.Attachments()
	require.Len(t, a, 1)
	assert.Equal(t, "notes.txt", a[0].Filename)
	assert.Equal(t, "remember the milk", string(a[0].Body))

	// The command closed the journal, so it can be reopened here.
	db, err := storage.NewBadgerDB(&storage.KVConfig{StorageDirPath: journalDir})
	require.NoError(t, err)
	j := storage.NewJournal(db)
	defer j.Close()

	r, err := j.Lookup(p.Header.Get("Message-ID"))
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", r.From)
	assert.Equal(t, []string{"to@example.com"}, r.To)
	assert.Equal(t, []string{"cc@example.com"}, r.Cc)
	assert.Nil(t, r.Bcc)
	assert.Equal(t, "From the CLI", r.Subject)
	assert.Equal(t, "smtp", r.Transport)
}

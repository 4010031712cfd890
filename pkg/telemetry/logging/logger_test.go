package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"json", Config{Level: "info", Format: "json"}, false},
		{"text", Config{Level: "debug", Format: "text"}, false},
		{"console alias", Config{Level: "WARN", Format: "console"}, false},
		{"defaults", Config{}, false},
		{"invalid level", Config{Level: "loud"}, true},
		{"invalid format", Config{Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Writer: buf})
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Equal(t, "shown", decodeLine(t, buf)["msg"])
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Writer: buf})
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithDomain(ctx, "vm")
	ctx = WithEnvironment(ctx, "production")

	logger.InfoContext(ctx, "cleanup started", "pattern", "ci_templates")

	entry := decodeLine(t, buf)
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "vm", entry["domain"])
	assert.Equal(t, "production", entry["environment"])
	assert.Equal(t, "ci_templates", entry["pattern"])

	assert.Equal(t, "run-1", RunID(ctx))
	assert.Equal(t, "vm", Domain(ctx))
	assert.Equal(t, "production", Environment(ctx))
	assert.Empty(t, RunID(context.Background()))
}

func TestLogger_Redaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Writer: buf, Redact: true})
	require.NoError(t, err)

	logger.With("account_key", "c2VjcmV0LWtleQ==").Info("listing blobs",
		"url", "https://acct.blob.core.windows.net/c?sv=2022&sig=abc%2Fdef&se=x",
		"error", errors.New("auth failed: Bearer eyJhbGciOi.payload"),
		"conn", "DefaultEndpointsProtocol=https;AccountName=a;AccountKey=zzz;EndpointSuffix=core",
	)

	entry := decodeLine(t, buf)
	assert.Equal(t, "c2Vj***", entry["account_key"])
	assert.Equal(t, "https://acct.blob.core.windows.net/c?sv=2022&sig=***&se=x", entry["url"])
	assert.Equal(t, "auth failed: Bearer ***", entry["error"])
	assert.Contains(t, entry["conn"], "AccountKey=***;")
}

func TestLogger_NoRedactionByDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Writer: buf})
	require.NoError(t, err)

	logger.Info("x", "url", "https://a/c?sig=abc")
	assert.Equal(t, "https://a/c?sig=abc", decodeLine(t, buf)["url"])
}

func TestRedactor_Groups(t *testing.T) {
	r := NewRedactor()

	a := r.RedactAttr(slog.Group("azure", slog.String("client_secret", "hunter22"), slog.Int("retries", 3)))
	group := a.Value.Group()
	require.Len(t, group, 2)
	assert.Equal(t, "hunt***", group[0].Value.String())
	assert.Equal(t, int64(3), group[1].Value.Int64())
}

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		in   string
		want string
	}{
		{"aws_secret_access_key = wJalrXUtnFEMI", "aws_secret_access_key = ***"},
		{"SharedAccessSignature=sv=2021&sig=x;BlobEndpoint=y", "SharedAccessSignature=***;BlobEndpoint=y"},
		{"nothing to hide", "nothing to hide"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.RedactString(tt.in))
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}

package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "key")
	if err := os.WriteFile(file, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("TEST_SECRET", "from-env")

	cases := []struct {
		name string
		src  Source
		want string
	}{
		{name: "file wins", src: Source{File: file, Value: "inline", Env: "TEST_SECRET"}, want: "from-file"},
		{name: "inline before env", src: Source{Value: " inline ", Env: "TEST_SECRET"}, want: "inline"},
		{name: "env fallback", src: Source{Env: "TEST_SECRET"}, want: "from-env"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Load(tc.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("TEST_EMPTY_SECRET", "")

	cases := []struct {
		name string
		src  Source
		want string
	}{
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(dir, "nope")}, want: "reading api key from file"},
		{name: "empty file", src: Source{Name: "api key", File: empty}, want: "is empty"},
		{name: "unset env", src: Source{Name: "api key", Env: "TEST_EMPTY_SECRET"}, want: "set TEST_EMPTY_SECRET"},
		{name: "nothing", src: Source{}, want: "secret is not configured"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.src)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadAWSFromDotEnv(t *testing.T) {
	for _, key := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION", "AWS_SESSION_TOKEN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "AWS_ACCESS_KEY_ID=AKIA123\nAWS_SECRET_ACCESS_KEY=secret\nAWS_REGION=us-east-1\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if err := LoadDotEnv(envFile, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	creds, err := LoadAWS(DefaultAWSSources())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.AccessKeyID != "AKIA123" || creds.SecretAccessKey != "secret" || creds.Region != "us-east-1" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if creds.SessionToken != "" {
		t.Fatalf("expected no session token, got %q", creds.SessionToken)
	}
}

func TestLoadAWSReportsAllMissing(t *testing.T) {
	sources := AWSSources{
		AccessKeyID:     Source{Name: "aws access key id", Value: "AKIA"},
		SecretAccessKey: Source{Name: "aws secret access key"},
		Region:          Source{Name: "aws region"},
	}

	_, err := LoadAWS(sources)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"aws secret access key", "aws region"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

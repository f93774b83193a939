// Package secrets resolves credentials from inline values, files, the
// environment and optional .env files.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env is consulted when neither File nor Value is set.
	Env string
}

// Load returns the trimmed secret from File, Value or Env, in that order.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("%s is not configured (set %s)", name, env)
	}

	return "", fmt.Errorf("%s is not configured", name)
}

// LoadDotEnv loads variables from the given .env files without overriding
// variables already present. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// Credentials are the AWS keys required by the Bedrock provider.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	SessionToken    string
}

// AWSSources describes where each AWS credential may come from.
type AWSSources struct {
	AccessKeyID     Source
	SecretAccessKey Source
	Region          Source
	SessionToken    Source
}

// DefaultAWSSources falls back to the standard AWS environment variables.
func DefaultAWSSources() AWSSources {
	return AWSSources{
		AccessKeyID:     Source{Name: "aws access key id", Env: "AWS_ACCESS_KEY_ID"},
		SecretAccessKey: Source{Name: "aws secret access key", Env: "AWS_SECRET_ACCESS_KEY"},
		Region:          Source{Name: "aws region", Env: "AWS_REGION"},
		SessionToken:    Source{Name: "aws session token", Env: "AWS_SESSION_TOKEN"},
	}
}

// LoadAWS resolves all credentials and reports every missing one at once.
func LoadAWS(src AWSSources) (Credentials, error) {
	var (
		creds Credentials
		errs  []error
	)

	required := []struct {
		source Source
		dst    *string
	}{
		{src.AccessKeyID, &creds.AccessKeyID},
		{src.SecretAccessKey, &creds.SecretAccessKey},
		{src.Region, &creds.Region},
	}
	for _, r := range required {
		value, err := Load(r.source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*r.dst = value
	}

	// The session token is optional.
	if token, err := Load(src.SessionToken); err == nil {
		creds.SessionToken = token
	}

	if len(errs) > 0 {
		return Credentials{}, fmt.Errorf("incomplete aws credentials: %w", errors.Join(errs...))
	}
	return creds, nil
}

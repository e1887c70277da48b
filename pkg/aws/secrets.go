package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrEmptySecret is returned for secrets without a string value.
var ErrEmptySecret = errors.New("secret has no string value")

// SecretGetter reads a named secret string.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SecretsClient reads secrets from Secrets Manager once and answers repeat
// lookups from memory.
type SecretsClient struct {
	client *secretsmanager.Client

	mu     sync.Mutex
	values map[string]string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{
		client: secretsmanager.NewFromConfig(cfg),
		values: make(map[string]string),
	}
}

func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	v, ok := s.values[name]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	v = sdkaws.ToString(out.SecretString)
	if v == "" {
		return "", fmt.Errorf("get secret %s: %w", name, ErrEmptySecret)
	}

	s.mu.Lock()
	s.values[name] = v
	s.mu.Unlock()
	return v, nil
}

// SecretField extracts key from a JSON object secret. A secret that is not
// a JSON object is returned whole.
func SecretField(raw, key string) string {
	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(fields[key])
}

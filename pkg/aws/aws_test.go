package aws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	aws_pkg "storefront-service/pkg/aws"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) sdkaws.Config {
	return sdkaws.Config{
		Region: "us-east-1",
		Credentials: sdkaws.CredentialsProviderFunc(func(context.Context) (sdkaws.Credentials, error) {
			return sdkaws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
		}),
		BaseEndpoint:     sdkaws.String(endpoint),
		RetryMaxAttempts: 1,
	}
}

func TestLoadAWSConfig_Endpoint(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ENDPOINT", "http://localhost:4566")

	cfg, err := aws_pkg.LoadAWSConfig(context.Background())

	require.NoError(t, err)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)
}

func TestSecretsClient_CachesValues(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "secretsmanager.GetSecretValue", r.Header.Get("X-Amz-Target"))

		var in struct{ SecretId string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "storefront/SALABLE_API_KEY", in.SecretId)

		w.Header().Set("Content-Type", "application/x-amz-json-1.1")
		_, _ = w.Write([]byte(`{"Name":"storefront/SALABLE_API_KEY","SecretString":"sk_live"}`))
	}))
	defer srv.Close()

	sm := aws_pkg.NewSecretsClient(testConfig(srv.URL))

	for i := 0; i < 2; i++ {
		v, err := sm.GetSecret(context.Background(), "storefront/SALABLE_API_KEY")
		require.NoError(t, err)
		assert.Equal(t, "sk_live", v)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestSecretsClient_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-amz-json-1.1")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"__type":"ResourceNotFoundException","message":"not found"}`))
	}))
	defer srv.Close()

	_, err := aws_pkg.NewSecretsClient(testConfig(srv.URL)).GetSecret(context.Background(), "missing")

	assert.ErrorContains(t, err, "missing")
}

func TestSecretField(t *testing.T) {
	assert.Equal(t, "sk_plain", aws_pkg.SecretField(" sk_plain\n", "SALABLE_API_KEY"))
	assert.Equal(t, "sk_json", aws_pkg.SecretField(`{"SALABLE_API_KEY":"sk_json"}`, "SALABLE_API_KEY"))
	assert.Empty(t, aws_pkg.SecretField(`{"OTHER":"x"}`, "SALABLE_API_KEY"))
}

func TestSNSClient_RejectsEmptyTopic(t *testing.T) {
	client := aws_pkg.NewSNSClient(testConfig("http://127.0.0.1:1"))

	err := client.Publish(context.Background(), "", "checkout_link_created", []byte("{}"))

	assert.ErrorIs(t, err, aws_pkg.ErrNoTopic)
}

func TestMetricsClient_NilIsDisabled(t *testing.T) {
	var m *aws_pkg.MetricsClient

	assert.False(t, m.IsEnabled())
	assert.NoError(t, m.RecordCount(context.Background(), aws_pkg.MetricHTTPRequests, nil))
}

func TestMetricsClient_PutsMetricData(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := aws_pkg.NewMetricsClient(testConfig(srv.URL), "")
	require.True(t, m.IsEnabled())

	_ = m.RecordLatency(context.Background(), aws_pkg.MetricHTTPLatency, 12*time.Millisecond, map[string]string{"Service": "storefront-service"})

	assert.Equal(t, int32(1), hits.Load())
}

func TestDimensions_Sorted(t *testing.T) {
	dims := aws_pkg.Dimensions(map[string]string{"Status": "2xx", "Method": "GET", "Path": "/health"})

	require.Len(t, dims, 3)
	assert.Equal(t, "Method", *dims[0].Name)
	assert.Equal(t, "Path", *dims[1].Name)
	assert.Equal(t, "Status", *dims[2].Name)
	assert.Equal(t, "2xx", *dims[2].Value)
}

package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	headers, err := ParseHeaders(" authorization = Bearer abc ,, x-team=acdm")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"authorization": "Bearer abc", "x-team": "acdm"}, headers)

	_, err = ParseHeaders("novalue")
	require.Error(t, err)
	_, err = ParseHeaders("=value")
	require.Error(t, err)
}

func TestSetupDisabledIsNoop(t *testing.T) {
	tel, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetupRequiresServiceName(t *testing.T) {
	_, err := Setup(context.Background(), Config{Traces: true})
	require.Error(t, err)
}

func TestSetupTraces(t *testing.T) {
	tel, err := Setup(context.Background(), Config{ServiceName: "acdmd", Endpoint: "127.0.0.1:4318", Insecure: true, Traces: true})
	require.NoError(t, err)
	require.Len(t, tel.shutdown, 1)
	require.NoError(t, tel.Shutdown(context.Background()))
}

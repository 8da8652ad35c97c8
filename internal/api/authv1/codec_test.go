package authv1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.Equal(t, "json", c.Name())
}

func TestCodec_PlainStruct(t *testing.T) {
	c := Codec{}

	b, err := c.Marshal(&ResendVerificationResponse{ExpiresAt: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expiresAt":"2026-10-16T00:00:00Z"}`, string(b))

	var in LoginRequest
	require.NoError(t, c.Unmarshal([]byte(`{"identifier":"a@b.c","password":"p"}`), &in))
	assert.Equal(t, LoginRequest{Identifier: "a@b.c", Password: "p"}, in)
}

func TestCodec_ProtoMessages(t *testing.T) {
	c := Codec{}

	b, err := c.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"SERVING"}`, string(b))

	var out healthpb.HealthCheckResponse
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, out.Status)

	// empty messages may arrive as zero bytes
	require.NoError(t, c.Unmarshal(nil, &emptypb.Empty{}))
	require.NoError(t, c.Unmarshal(nil, &LogoutRequest{}))
}

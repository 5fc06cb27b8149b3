package wire

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestResultCarriesRejectionCode(t *testing.T) {
	res := ResultOf(rules.Errorf(rules.CodeNotYourTurn, "it is %s's turn", "0xabc"))
	assert.False(t, res.Success)
	assert.Equal(t, rules.CodeNotYourTurn, res.Code)
	assert.False(t, res.Retryable)

	err := res.Err()
	assert.ErrorIs(t, err, rules.ErrNotYourTurn)
	assert.Contains(t, err.Error(), "0xabc")
}

func TestResultMarksTransientErrors(t *testing.T) {
	res := ResultOf(fmt.Errorf("%w: game g1", gateway.ErrBusy))
	assert.True(t, res.Retryable)
	assert.Empty(t, res.Code)
	assert.True(t, gateway.IsRetryable(res.Err()))

	res = ResultOf(errors.New("boom"))
	assert.False(t, res.Retryable)
	assert.EqualError(t, res.Err(), "boom")
}

func TestResultOK(t *testing.T) {
	assert.Equal(t, OK, ResultOf(nil))
	assert.NoError(t, OK.Err())
}

func TestCodecIsRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := &ActionResponse{
		Result:     Result{Code: rules.CodeHandFull, Error: "hand is full"},
		GameID:     "g1",
		ServerTime: timestamppb.New(at),
	}
	data, err := codec.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"code":"HAND_FULL"`)

	var out ActionResponse
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, "g1", out.GameID)
	assert.ErrorIs(t, out.Err(), rules.ErrHandFull)
	assert.True(t, out.ServerTime.AsTime().Equal(at))
}

func TestActionMethodsCoverEveryKind(t *testing.T) {
	for _, k := range gateway.Kinds {
		assert.NotEmpty(t, ActionMethods[k], k)
	}
	assert.Equal(t, "/duel.v1.DuelService/PlayCard", FullMethod(MethodPlayCard))
}
